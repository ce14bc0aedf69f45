package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/notelab/sidechat/internal/chat"
)

// MarkdownExporter renders sessions as a readable transcript.
type MarkdownExporter struct{}

// Export writes the session to w in Markdown format. Hidden messages are
// included but marked; separators become horizontal rules.
func (e *MarkdownExporter) Export(sess *chat.Session, w io.Writer) error {
	title := sess.Title
	if title == "" {
		title = fmt.Sprintf("Session %s", sess.ID)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	if len(sess.Tags) > 0 {
		_, _ = fmt.Fprintf(w, "**Tags:** %s  \n", strings.Join(sess.Tags, ", "))
	}
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", sess.CreatedAt.Format("2006-01-02 15:04"))
	_, _ = fmt.Fprintf(w, "**Items:** %d\n\n", len(sess.Items))

	for _, item := range sess.Items {
		if item.Kind == chat.KindSeparator {
			_, _ = fmt.Fprintf(w, "---\n\n")
			continue
		}

		label := labelOf(item)
		suffix := ""
		if item.Hidden {
			suffix += " (hidden)"
		}
		if !item.Timestamp.IsZero() {
			suffix += fmt.Sprintf(" (%s)", item.Timestamp.Format("2006-01-02 15:04"))
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, suffix, escapeMarkdown(item.Content))

		if len(item.Versions) > 1 {
			_, _ = fmt.Fprintf(w, "_%d versions_\n\n", len(item.Versions))
		}
	}

	return nil
}

func labelOf(item *chat.Item) string {
	switch item.Role {
	case chat.RoleUser:
		return "User"
	case chat.RoleAssistant:
		if item.Author != "" {
			return item.Author
		}
		return "Assistant"
	default:
		return string(item.Role)
	}
}

// escapeMarkdown escapes emphasis syntax outside code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
