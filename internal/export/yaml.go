package export

import (
	"io"
	"time"

	"github.com/notelab/sidechat/internal/chat"

	"gopkg.in/yaml.v3"
)

// YAMLExporter renders sessions as YAML. It uses a dedicated view type so
// field names stay stable regardless of the snapshot encoding.
type YAMLExporter struct{}

type yamlSession struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title,omitempty"`
	SystemPrompt string     `yaml:"system_prompt,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at"`
	UpdatedAt    time.Time  `yaml:"updated_at"`
	Tags         []string   `yaml:"tags,omitempty"`
	Items        []yamlItem `yaml:"items"`
}

type yamlItem struct {
	ID        string    `yaml:"id"`
	Kind      string    `yaml:"kind"`
	Role      string    `yaml:"role,omitempty"`
	Author    string    `yaml:"author,omitempty"`
	Timestamp time.Time `yaml:"timestamp,omitempty"`
	Content   string    `yaml:"content,omitempty"`
	Hidden    bool      `yaml:"hidden,omitempty"`
	Versions  int       `yaml:"versions,omitempty"`
}

func (e *YAMLExporter) Export(sess *chat.Session, w io.Writer) error {
	view := yamlSession{
		ID:           sess.ID,
		Title:        sess.Title,
		SystemPrompt: sess.SystemPrompt,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		Tags:         sess.Tags,
	}
	for _, item := range sess.Items {
		view.Items = append(view.Items, yamlItem{
			ID:        item.ID,
			Kind:      string(item.Kind),
			Role:      string(item.Role),
			Author:    item.Author,
			Timestamp: item.Timestamp,
			Content:   item.Content,
			Hidden:    item.Hidden,
			Versions:  len(item.Versions),
		})
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(view)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
