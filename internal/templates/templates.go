// Package templates manages named sets of nmap flags. Templates are kept
// in a JSON file so operators can add their own without rebuilding.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cyberrange/rangescan/internal/errors"
)

const fileMode = 0600

// Set maps template names to the nmap flags they expand to.
type Set map[string][]string

// Defaults returns the built-in scan templates.
func Defaults() Set {
	return Set{
		"Quick Scan":   {"-T4", "-F"},
		"Intense Scan": {"-T4", "-A", "-v"},
		"Vuln Scan":    {"-T4", "--script", "vuln"},
	}
}

// Names returns the template names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flags looks up the flag list for a named template.
func (s Set) Flags(name string) ([]string, error) {
	flags, ok := s[name]
	if !ok {
		return nil, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("unknown scan template %q", name), "template", name)
	}
	return flags, nil
}

// Store persists a template set to a JSON file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the template set from disk. A missing file yields the
// built-in defaults; a corrupt file is an error rather than silent reset.
func (s *Store) Load() (Set, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to read templates file", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to parse templates file", err)
	}
	return set, nil
}

// Save writes the template set to disk, creating parent directories as
// needed.
func (s *Store) Save(set Set) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to create templates directory", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to encode templates", err)
	}

	if err := os.WriteFile(s.path, data, fileMode); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to write templates file", err)
	}
	return nil
}
