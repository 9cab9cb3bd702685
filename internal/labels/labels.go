// Package labels loads the class-name catalog that aligns with the model's
// prediction vector.
package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrEmptyCatalog is returned when the label file has no labels.
var ErrEmptyCatalog = errors.New("label catalog is empty")

// Catalog is an ordered, read-only list of class names indexed by class index.
type Catalog struct {
	labels []string
}

type labelsFile struct {
	Labels *[]string `json:"labels"`
}

// New builds a catalog from names. The slice is copied.
func New(names []string) (*Catalog, error) {
	if len(names) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{labels: append([]string(nil), names...)}, nil
}

// Load reads a JSON document of the form {"labels": [...]} from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a label document.
func Parse(data []byte) (*Catalog, error) {
	var doc labelsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse label file: %w", err)
	}
	if doc.Labels == nil {
		return nil, errors.New(`parse label file: missing "labels" key`)
	}
	return New(*doc.Labels)
}

// Len returns the number of classes.
func (c *Catalog) Len() int {
	return len(c.labels)
}

// Label returns the class name at index.
func (c *Catalog) Label(index int) (string, error) {
	if index < 0 || index >= len(c.labels) {
		return "", fmt.Errorf("label index %d out of range [0,%d)", index, len(c.labels))
	}
	return c.labels[index], nil
}

// Labels returns a copy of all class names in index order.
func (c *Catalog) Labels() []string {
	return append([]string(nil), c.labels...)
}
