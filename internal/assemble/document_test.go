package assemble

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentCarriesSchemaEnvelope(t *testing.T) {
	doc := NewDocument()

	ctxVal, ok := doc.Get("@context")
	require.True(t, ok)
	assert.Equal(t, "https://schema.org", ctxVal)

	typeVal, ok := doc.Get("@type")
	require.True(t, ok)
	assert.Equal(t, "Recipe", typeVal)
}

func TestMergeLastWriteWins(t *testing.T) {
	doc := NewDocument()
	doc.Merge(map[string]interface{}{"name": "A"})
	doc.Merge(map[string]interface{}{"name": "B"})

	v, ok := doc.Get("name")
	require.True(t, ok)
	assert.Equal(t, "B", v)
}

func TestMergeReplacesNestedObjectsWholesale(t *testing.T) {
	doc := NewDocument()
	doc.Merge(map[string]interface{}{
		"nutrition": map[string]interface{}{"calories": "100", "fatContent": "2g"},
	})
	doc.Merge(map[string]interface{}{
		"nutrition": map[string]interface{}{"calories": "250"},
	})

	v, _ := doc.Get("nutrition")
	nested := v.(map[string]interface{})
	assert.Equal(t, "250", nested["calories"])
	_, hasFat := nested["fatContent"]
	assert.False(t, hasFat, "nested keys are never merged field-by-field")
}

func TestStampSetsRunDate(t *testing.T) {
	doc := NewDocument()
	doc.Stamp(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC))

	v, ok := doc.Get("datePublished")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14", v)
}

func TestFieldsReturnsCopy(t *testing.T) {
	doc := NewDocument()
	doc.Set("name", "Original")

	fields := doc.Fields()
	fields["name"] = "Mutated"

	v, _ := doc.Get("name")
	assert.Equal(t, "Original", v)
}

func TestJSONLDWrapsScriptTag(t *testing.T) {
	doc := NewDocument()
	doc.Set("name", "Bibimbap")

	out, err := doc.JSONLD()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<script type="application/ld+json">`))
	assert.True(t, strings.HasSuffix(out, `</script>`))
	assert.Contains(t, out, `"name":"Bibimbap"`)
	assert.Contains(t, out, `"@type":"Recipe"`)
}
