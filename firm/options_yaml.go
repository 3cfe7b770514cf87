package firm

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders o as a flat path->value document, one entry per leaf
// that has been Set — the same dotted-path/string-value shape Set itself
// takes, so a dumped document round-trips through LoadYAML without any
// nested-document translation step.
func (o *Options) MarshalYAML() (interface{}, error) {
	snap := map[string]string{}
	for _, path := range o.Keys() {
		if v, ok := o.Get(path); ok {
			snap[path] = v
		}
	}
	return snap, nil
}

// DumpYAML marshals o to YAML bytes via MarshalYAML.
func (o *Options) DumpYAML() ([]byte, error) {
	return yaml.Marshal(o)
}

// LoadYAML decodes data as a flat path->value document and Sets each entry
// against o's already-declared leaves, in sorted path order so the first
// validation failure is deterministic. A path the caller hasn't Declare'd
// yet fails exactly as a direct Set call would.
func (o *Options) LoadYAML(data []byte) error {
	var snap map[string]string
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return err
	}
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := o.Set(p, snap[p]); err != nil {
			return err
		}
	}
	return nil
}
