package output

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/sherlog/internal/model"
)

type sourceDoc struct {
	Name    string      `json:"name" yaml:"name"`
	Entries []entryDoc  `json:"entries,omitempty" yaml:"entries,omitempty"`
	Sources []sourceDoc `json:"sources,omitempty" yaml:"sources,omitempty"`
}

type entryDoc struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Severity  string         `json:"severity" yaml:"severity"`
	Message   string         `json:"message" yaml:"message"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func newSourceDoc(src *model.LogSource) sourceDoc {
	doc := sourceDoc{Name: src.Name}
	if !src.IsLeaf() {
		doc.Sources = make([]sourceDoc, 0, len(src.Sources))
		for _, child := range src.Sources {
			doc.Sources = append(doc.Sources, newSourceDoc(child))
		}
		return doc
	}
	doc.Entries = make([]entryDoc, 0, len(src.Entries))
	for _, e := range src.Entries {
		doc.Entries = append(doc.Entries, newEntryDoc(e))
	}
	return doc
}

func newEntryDoc(e model.LogEntry) entryDoc {
	doc := entryDoc{
		Timestamp: e.Timestamp,
		Severity:  e.Severity.String(),
		Message:   e.Message,
	}
	if len(e.Fields) > 0 {
		doc.Fields = make(map[string]any, len(e.Fields))
		for name, v := range e.Fields {
			doc.Fields[name] = fieldValue(v)
		}
	}
	return doc
}

func fieldValue(v model.CustomField) any {
	switch f := v.(type) {
	case model.UInt32Field:
		return uint32(f)
	case model.Int32Field:
		return int32(f)
	case model.StringField:
		return string(f)
	default:
		return nil
	}
}

// WriteJSON writes the tree as indented JSON.
func WriteJSON(w io.Writer, root *model.LogSource) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newSourceDoc(root))
}

// WriteYAML writes the tree as a YAML document.
func WriteYAML(w io.Writer, root *model.LogSource) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newSourceDoc(root)); err != nil {
		return err
	}
	return enc.Close()
}
