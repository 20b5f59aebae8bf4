// Package files persists generated replies to disk when no draft can
// be created remotely.
package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Writer saves reply files into a responses directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer for the given directory.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Init ensures the responses directory exists.
func (w *Writer) Init() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating responses directory %s: %w", w.dir, err)
	}
	return nil
}

// SaveResponse writes the original message and the generated reply to a
// timestamped file and returns its path.
func (w *Writer) SaveResponse(msg *model.EmailMessage, reply string) (string, error) {
	timestamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format(time.RFC3339Nano))
	subject := unsafeChars.ReplaceAllString(msg.Subject, "_")
	if len(subject) > 30 {
		subject = subject[:30]
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.txt", timestamp, subject))

	content := w.render(msg, reply)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("saving response to %s: %w", path, err)
	}

	w.logger.Info("response saved to file",
		slog.String("path", path),
		slog.String("sender", msg.From.Address),
	)
	return path, nil
}

// render formats the file body: message metadata, the original text,
// then the generated reply.
func (w *Writer) render(msg *model.EmailMessage, reply string) string {
	var sb strings.Builder
	rule := strings.Repeat("-", 80)

	sb.WriteString("FROM: ")
	sb.WriteString(formatAddress(msg.From))
	sb.WriteString("\n")

	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, formatAddress(to))
	}
	sb.WriteString("TO: ")
	sb.WriteString(strings.Join(recipients, ", "))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "SUBJECT: %s\n", msg.Subject)
	fmt.Fprintf(&sb, "DATE: %s\n\n", msg.Date.UTC().Format(time.RFC3339))

	fmt.Fprintf(&sb, "%s\nORIGINAL EMAIL:\n%s\n%s\n\n", rule, rule, msg.TextBody)
	fmt.Fprintf(&sb, "%s\nGENERATED RESPONSE:\n%s\n%s\n", rule, rule, reply)

	return sb.String()
}

func formatAddress(addr model.EmailAddress) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return fmt.Sprintf("<%s>", addr.Address)
}
