// internal/assemble/document.go

// Package assemble builds one canonical recipe document from JSON fragments
// gathered across independent chat turns.
package assemble

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is a schema.org Recipe being built incrementally. Fragments merge
// with last-write-wins semantics over whole top-level keys: a later
// fragment's "nutrition" replaces the earlier one outright, nested objects
// are never merged field-by-field. That mirrors the source behavior this
// pipeline reproduces; downstream consumers expecting deep merges should
// merge per-field before a key is set twice.
type Document struct {
	fields map[string]interface{}
}

// NewDocument creates an empty document carrying the schema.org envelope.
func NewDocument() *Document {
	return &Document{
		fields: map[string]interface{}{
			"@context": "https://schema.org",
			"@type":    "Recipe",
		},
	}
}

// Merge applies a fragment: every top-level key replaces any existing value.
func (d *Document) Merge(frag map[string]interface{}) {
	for k, v := range frag {
		d.fields[k] = v
	}
}

// Set assigns a single top-level field.
func (d *Document) Set(key string, value interface{}) {
	d.fields[key] = value
}

// Get returns a top-level field.
func (d *Document) Get(key string) (interface{}, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// Has reports whether a top-level field is present.
func (d *Document) Has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

// Stamp finalizes the document with the run date.
func (d *Document) Stamp(now time.Time) {
	d.fields["datePublished"] = now.Format("2006-01-02")
}

// Fields returns a shallow copy of the document's top-level mapping.
func (d *Document) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}

// MarshalJSON serializes the underlying mapping.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.fields)
}

// JSONLD renders the document as an embeddable JSON-LD script tag, the shape
// the recipe sink ingests.
func (d *Document) JSONLD() (string, error) {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize recipe document: %w", err)
	}
	return fmt.Sprintf(`<script type="application/ld+json">%s</script>`, data), nil
}
