package triage

import (
	"sort"

	"github.com/mbeaupre/autoemail/internal/model"
)

// GroupBySender buckets messages by sender address. Groups come back in
// first-seen order and each group's messages are sorted newest first,
// so Newest() is the message a reply should target.
func GroupBySender(msgs []model.EmailMessage) []model.SenderGroup {
	index := make(map[string]int)
	var groups []model.SenderGroup

	for _, msg := range msgs {
		address := msg.From.Address
		i, ok := index[address]
		if !ok {
			i = len(groups)
			index[address] = i
			groups = append(groups, model.SenderGroup{Address: address})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}

	for i := range groups {
		msgs := groups[i].Messages
		sort.SliceStable(msgs, func(a, b int) bool {
			return msgs[a].Date.After(msgs[b].Date)
		})
	}

	return groups
}
