package triage

import (
	"testing"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
)

func msgAt(address, subject string, day int) model.EmailMessage {
	return model.EmailMessage{
		From:    model.EmailAddress{Address: address},
		Subject: subject,
		Date:    time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestGroupBySender(t *testing.T) {
	msgs := []model.EmailMessage{
		msgAt("ada@customer.test", "first", 10),
		msgAt("bob@other.test", "question", 12),
		msgAt("ada@customer.test", "newest", 20),
		msgAt("ada@customer.test", "middle", 15),
	}

	groups := GroupBySender(msgs)

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	// First-seen order of senders.
	if groups[0].Address != "ada@customer.test" || groups[1].Address != "bob@other.test" {
		t.Errorf("group order = %q, %q", groups[0].Address, groups[1].Address)
	}

	ada := groups[0]
	if len(ada.Messages) != 3 {
		t.Fatalf("ada group size = %d, want 3", len(ada.Messages))
	}

	// Newest first within a group.
	wantOrder := []string{"newest", "middle", "first"}
	for i, want := range wantOrder {
		if ada.Messages[i].Subject != want {
			t.Errorf("ada.Messages[%d].Subject = %q, want %q", i, ada.Messages[i].Subject, want)
		}
	}

	if got := ada.Newest(); got == nil || got.Subject != "newest" {
		t.Errorf("Newest() = %+v, want the newest message", got)
	}
}

func TestGroupBySenderEmpty(t *testing.T) {
	if groups := GroupBySender(nil); len(groups) != 0 {
		t.Errorf("groups = %v, want none", groups)
	}
}
