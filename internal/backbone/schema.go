package backbone

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"ectdforge/internal/model"
)

//go:embed ectd-4.0.yaml
var schemaFiles embed.FS

// Slot is one placement target inside a module: a set of context-of-use
// codes that map to it, plus whether a valid submission must fill it.
type Slot struct {
	Name     string   `yaml:"name"`
	Required bool     `yaml:"required"`
	Contexts []string `yaml:"contexts"`
	CatchAll bool     `yaml:"catch_all"`
}

// Module is one eCTD module (m1..m5) or the trailing catch-all.
type Module struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Slots []Slot `yaml:"slots"`
}

// Schema is the fixed regulatory hierarchy table for one eCTD version.
// It is immutable after load; placement of every document is a pure
// function of the schema and the document's context of use.
type Schema struct {
	Version string   `yaml:"version"`
	Modules []Module `yaml:"modules"`
}

var (
	schemaOnce  sync.Once
	schemaCache map[string]*Schema
	schemaErr   error
)

// LoadSchema returns the hierarchy table for an eCTD version. Tables are
// parsed once per process from the embedded definitions.
func LoadSchema(version string) (*Schema, error) {
	schemaOnce.Do(func() {
		schemaCache = make(map[string]*Schema)
		for _, name := range []string{"ectd-4.0.yaml"} {
			data, err := schemaFiles.ReadFile(name)
			if err != nil {
				schemaErr = fmt.Errorf("read embedded schema %s: %w", name, err)
				return
			}
			var s Schema
			if err := yaml.Unmarshal(data, &s); err != nil {
				schemaErr = fmt.Errorf("parse schema %s: %w", name, err)
				return
			}
			schemaCache[s.Version] = &s
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemaCache[version]
	if !ok {
		return nil, fmt.Errorf("unknown eCTD version %q", version)
	}
	return s, nil
}

// DefaultVersion is the eCTD version the engine builds against.
const DefaultVersion = "4.0"

// Resolve returns the module and slot a context of use maps to. Contexts
// with no explicit mapping land in the catch-all slot, so every document
// is always placed exactly once.
func (s *Schema) Resolve(cou model.ContextOfUse) (module, slot string) {
	for _, m := range s.Modules {
		for _, sl := range m.Slots {
			for _, c := range sl.Contexts {
				if c == string(cou) {
					return m.Name, sl.Name
				}
			}
		}
	}
	return s.catchAll()
}

func (s *Schema) catchAll() (module, slot string) {
	for _, m := range s.Modules {
		for _, sl := range m.Slots {
			if sl.CatchAll {
				return m.Name, sl.Name
			}
		}
	}
	// The embedded table always carries a catch-all; this is a safety net
	// for hand-edited tables.
	last := s.Modules[len(s.Modules)-1]
	return last.Name, "other"
}
