// Package report renders the prioritized-sender report for the
// terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/internal/theme"
)

const subjectWidth = 30

// Render formats ranked sender scores as a table: score, subject,
// sender, and how many messages the sender has waiting. The input is
// expected to be sorted most urgent first.
func Render(scores []model.GroupScore) string {
	var sb strings.Builder

	sb.WriteString(theme.HeaderStyle.Render("PRIORITIZED EMAILS BY SENDER"))
	sb.WriteString("\n")
	sb.WriteString(theme.ColumnStyle.Render(
		fmt.Sprintf("%5s | %-*s | %s", "Score", subjectWidth, "Subject", "Sender"),
	))
	sb.WriteString("\n")
	sb.WriteString(theme.RuleStyle.Render(strings.Repeat("-", 70)))
	sb.WriteString("\n")

	if len(scores) == 0 {
		sb.WriteString("no recent messages\n")
		return sb.String()
	}

	for _, score := range scores {
		msg := score.Group.Newest()
		if msg == nil {
			continue
		}

		count := ""
		if n := len(score.Group.Messages); n > 1 {
			count = fmt.Sprintf(" (%d emails)", n)
		}

		scoreCell := theme.UrgencyStyle(score.Urgency).Render(fmt.Sprintf("%5d", score.Urgency))
		fmt.Fprintf(&sb, "%s | %-*s | %s%s\n",
			scoreCell,
			subjectWidth, truncate(msg.Subject, subjectWidth),
			formatSender(msg.From),
			count,
		)
	}

	return sb.String()
}

func formatSender(addr model.EmailAddress) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return fmt.Sprintf("<%s>", addr.Address)
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
