package export

import (
	"encoding/json"
	"io"

	"github.com/notelab/sidechat/internal/chat"
)

// JSONExporter writes the snapshot form, pretty-printed. Output is the same
// shape the history store persists, so exported files can be loaded back.
type JSONExporter struct{}

func (e *JSONExporter) Export(sess *chat.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(sess)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
