// Package catalog holds the grievance type mapping: human-readable labels
// offered to callers and the backend codes the grievance service expects.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"

	dErrors "pmkisan/pkg/domain-errors"
)

// Pair is one label and its backend code.
type Pair struct {
	Label string
	Code  string
}

// Catalog is an ordered, read-only label to code mapping.
type Catalog struct {
	labels []string
	codes  map[string]string
}

// New builds a catalog from pairs. A repeated label keeps its first position
// and takes the last code.
func New(pairs ...Pair) *Catalog {
	c := &Catalog{codes: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		c.add(p.Label, p.Code)
	}
	return c
}

func (c *Catalog) add(label, code string) {
	if _, ok := c.codes[label]; !ok {
		c.labels = append(c.labels, label)
	}
	c.codes[label] = code
}

// Code returns the backend code for label. Lookup is exact and case-sensitive.
func (c *Catalog) Code(label string) (string, bool) {
	if c == nil {
		return "", false
	}
	code, ok := c.codes[label]
	return code, ok
}

// Labels returns the labels in file order.
func (c *Catalog) Labels() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.labels...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.labels)
}

// Parse reads a JSON object of {label: code}. Comments and trailing commas
// are tolerated.
func Parse(data []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))

	tok, err := dec.Token()
	if err != nil {
		return nil, invalid(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, invalid(errors.New("grievance types must be an object of {label: code}"))
	}

	c := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid(err)
		}
		label, _ := tok.(string)

		var code any
		if err := dec.Decode(&code); err != nil {
			return nil, invalid(err)
		}
		s, ok := code.(string)
		if !ok {
			return nil, invalid(fmt.Errorf("grievance type %q: code must be a string", label))
		}
		c.add(label, s)
	}
	if _, err := dec.Token(); err != nil {
		return nil, invalid(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, invalid(errors.New("unexpected data after grievance types object"))
	}
	return c, nil
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("failed to read grievance types at %q", path))
	}
	c, err := Parse(data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("failed to load grievance types at %q", path))
	}
	return c, nil
}

// LoadOrEmpty is Load for startup: failures are logged and an empty catalog
// is returned so status checks keep working.
func LoadOrEmpty(path string, logger *slog.Logger) *Catalog {
	c, err := Load(path)
	if err != nil {
		logger.Error("failed to load grievance mapping", "path", path, "error", err)
		return New()
	}
	logger.Info("grievance mapping loaded", "path", path, "types", c.Len())
	return c
}

func invalid(err error) error {
	return dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid grievance types")
}
