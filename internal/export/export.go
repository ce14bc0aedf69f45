package export

import (
	"fmt"
	"io"

	"github.com/notelab/sidechat/internal/chat"
)

// Exporter writes a session snapshot in a particular output format.
type Exporter interface {
	Export(sess *chat.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the given format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}
