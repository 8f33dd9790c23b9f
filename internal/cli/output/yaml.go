package output

import (
	"encoding/json"
	"io"

	"github.com/knadh/koanf/parsers/yaml"
)

// YAMLFormatter writes YAML. Values go through their JSON form first so
// json tags and MarshalJSON methods decide the keys.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		m = map[string]any{"items": doc}
	}
	out, err := yaml.Parser().Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
