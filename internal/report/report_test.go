package report

import (
	"strings"
	"testing"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
)

func scoredGroup(address, name, subject string, urgency, count int) model.GroupScore {
	group := model.SenderGroup{Address: address}
	for i := 0; i < count; i++ {
		group.Messages = append(group.Messages, model.EmailMessage{
			From:    model.EmailAddress{Name: name, Address: address},
			Subject: subject,
			Date:    time.Date(2026, 8, 20-i, 0, 0, 0, 0, time.UTC),
		})
	}
	return model.GroupScore{Group: group, Urgency: urgency}
}

func TestRender(t *testing.T) {
	out := Render([]model.GroupScore{
		scoredGroup("ada@customer.test", "Ada", "Site is down", 91, 3),
		scoredGroup("bob@other.test", "", "Invoice question", 20, 1),
	})

	for _, want := range []string{
		"PRIORITIZED EMAILS BY SENDER",
		"91",
		"Site is down",
		"Ada <ada@customer.test>",
		"(3 emails)",
		"<bob@other.test>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q", want)
		}
	}

	// Single-message senders carry no count suffix.
	if strings.Contains(out, "(1 emails)") {
		t.Error("Render() shows a count for a single-message sender")
	}
}

func TestRenderTruncatesLongSubjects(t *testing.T) {
	long := strings.Repeat("x", 60)
	out := Render([]model.GroupScore{
		scoredGroup("ada@customer.test", "", long, 50, 1),
	})

	if strings.Contains(out, long) {
		t.Error("Render() did not truncate a long subject")
	}
	if !strings.Contains(out, strings.Repeat("x", 30)) {
		t.Error("Render() lost the subject prefix")
	}
}

func TestRenderEmpty(t *testing.T) {
	out := Render(nil)
	if !strings.Contains(out, "no recent messages") {
		t.Errorf("Render(nil) = %q, want the empty notice", out)
	}
}
