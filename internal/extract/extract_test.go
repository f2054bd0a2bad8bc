package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(nil, zaptest.NewLogger(t))
}

// -- Strategy Chain Tests --

func TestExtractTaggedCodeBlock(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body>
		<p>Here is your recipe:</p>
		<pre><code class="language-json">{"name": "Pancakes"}</code></pre>
	</body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj, ok := frag.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Pancakes", obj["name"])
}

func TestExtractLastTaggedBlockWins(t *testing.T) {
	// The page accumulates earlier turns, so only the newest tagged block is
	// the current response.
	e := newTestExtractor(t)

	html := `<html><body>
		<code class="language-json">{"name": "Old Answer"}</code>
		<p>Sure, here is the updated version:</p>
		<code class="language-json">{"name": "New Answer"}</code>
	</body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	assert.Equal(t, "New Answer", obj["name"])
}

func TestExtractPreBlockFallback(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body>
		<pre>not json at all</pre>
		<pre>{"recipeIngredient": ["2 eggs", "1 cup flour"]}</pre>
	</body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	ing, ok := obj["recipeIngredient"].([]interface{})
	require.True(t, ok)
	assert.Len(t, ing, 2)
}

func TestExtractFencedBlockInFlattenedText(t *testing.T) {
	// Some UI variants render code fences as plain text.
	e := newTestExtractor(t)

	html := "<html><body><div>Sure! ```json\n{\"name\": \"Ramen\"}\n``` Anything else?</div></body></html>"

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	assert.Equal(t, "Ramen", obj["name"])
}

func TestExtractFencedBlockWithoutLanguageTag(t *testing.T) {
	e := newTestExtractor(t)

	html := "<html><body><div>```\n{\"name\": \"Stew\"}\n```</div></body></html>"

	frag, ok := e.Extract(html)
	require.True(t, ok)
	assert.Equal(t, "Stew", frag.(map[string]interface{})["name"])
}

func TestExtractBraceScanRecoversBareJSON(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body><p>The recipe is {"name": "Chili", "recipeYield": "4 servings"} as requested.</p></body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	assert.Equal(t, "Chili", obj["name"])
	assert.Equal(t, "4 servings", obj["recipeYield"])
}

func TestExtractBraceScanPrefersLongestSpan(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body><p>{"a": 1} and the full answer {"name": "Curry", "description": "a much longer complete object"}</p></body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	assert.Equal(t, "Curry", obj["name"])
}

func TestExtractBraceScanSkipsBracesInsideStrings(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body><p>{"note": "use } sparingly", "name": "Toast"}</p></body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	obj := frag.(map[string]interface{})
	assert.Equal(t, "Toast", obj["name"])
}

// -- Failure Behavior Tests --

func TestExtractNoJSONNeverFailsHard(t *testing.T) {
	e := newTestExtractor(t)

	cases := []string{
		"",
		"   ",
		"<html><body><p>I could not find a recipe in that caption.</p></body></html>",
		"<html><body><pre>{broken json</pre></body></html>",
		"<html><body><p>just the number 42</p></body></html>",
	}
	for i, html := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			frag, ok := e.Extract(html)
			assert.False(t, ok)
			assert.Nil(t, frag)
		})
	}
}

func TestExtractRejectsScalars(t *testing.T) {
	// A bare string or number is never a usable fragment.
	frag, ok := parseJSON(`"just a string"`)
	assert.False(t, ok)
	assert.Nil(t, frag)

	frag, ok = parseJSON("42")
	assert.False(t, ok)
	assert.Nil(t, frag)
}

func TestExtractAcceptsTopLevelArray(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><body><code class="language-json">[{"@type": "HowToStep", "text": "Boil water."}]</code></body></html>`

	frag, ok := e.Extract(html)
	require.True(t, ok)
	steps, ok := frag.([]interface{})
	require.True(t, ok)
	assert.Len(t, steps, 1)
}

// -- Span Scanner Tests --

func TestBalancedBraceSpans(t *testing.T) {
	spans := balancedBraceSpans(`before {"a": {"b": 1}} middle {"c": 2} after`)
	require.Len(t, spans, 2)
	assert.Equal(t, `{"a": {"b": 1}}`, spans[0])
	assert.Equal(t, `{"c": 2}`, spans[1])
}

func TestBalancedBraceSpansUnclosed(t *testing.T) {
	spans := balancedBraceSpans(`{"a": 1`)
	assert.Empty(t, spans)
}
