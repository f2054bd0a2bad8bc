// internal/extract/extract.go

// Package extract recovers JSON fragments from free-form conversational HTML.
// The chat model wraps JSON in markdown, prose, or nothing at all depending on
// the interaction, so extraction is an ordered strict-to-loose chain of
// strategies, short-circuiting on the first that parses.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/artifacts"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fragment is one JSON value extracted from one conversational turn. It has
// no fixed schema; the shape is implied by the prompt that produced it.
type Fragment = interface{}

// strategy attempts one extraction approach. Returning ok=false hands off to
// the next strategy in the chain.
type strategy struct {
	name string
	fn   func(doc *goquery.Document, text string) (Fragment, bool)
}

// The chain runs strictest first. Order matters: a tagged code block is
// near-certainly the intended payload, while a bare brace scan over the whole
// page text is a last resort that can pick up unrelated inline JSON.
var strategies = []strategy{
	{"tagged_code_block", fromTaggedCodeBlock},
	{"pre_block", fromPreBlock},
	{"fenced_block", fromFencedBlock},
	{"brace_scan", fromBraceScan},
}

// Extractor parses HTML snapshots into JSON fragments.
type Extractor struct {
	sink   *artifacts.Sink
	logger *zap.Logger
}

// New creates an Extractor. sink may be nil to disable the raw-HTML dump on
// total extraction failure.
func New(sink *artifacts.Sink, logger *zap.Logger) *Extractor {
	return &Extractor{
		sink:   sink,
		logger: logger.Named("extract"),
	}
}

// Extract runs the strategy chain over the rendered HTML. It returns the
// first fragment any strategy yields, or ok=false after persisting the raw
// HTML for offline diagnosis. It never fails hard on malformed input.
func (e *Extractor) Extract(html string) (Fragment, bool) {
	if strings.TrimSpace(html) == "" {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("Failed to parse response HTML.", zap.Error(err))
		return nil, false
	}
	text := doc.Text()

	for _, s := range strategies {
		if frag, ok := s.fn(doc, text); ok {
			e.logger.Debug("Fragment extracted.", zap.String("strategy", s.name))
			return frag, true
		}
	}

	e.logger.Warn("No JSON found in response after all fallbacks.")
	e.sink.SaveHTML("no_json", html)
	return nil, false
}

// fromTaggedCodeBlock takes the last code block explicitly tagged as JSON.
// The last block wins because the page accumulates earlier turns' responses.
func fromTaggedCodeBlock(doc *goquery.Document, _ string) (Fragment, bool) {
	blocks := doc.Find(`code[class*="language-json"]`)
	if blocks.Length() == 0 {
		return nil, false
	}
	return parseJSON(blocks.Last().Text())
}

// fromPreBlock tries pre-formatted blocks whose trimmed text starts with a
// JSON opener, first parseable one wins.
func fromPreBlock(doc *goquery.Document, _ string) (Fragment, bool) {
	var frag Fragment
	found := false
	doc.Find("pre").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
			return true
		}
		if f, ok := parseJSON(text); ok {
			frag, found = f, true
			return false
		}
		return true
	})
	return frag, found
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// fromFencedBlock extracts triple-backtick fenced blocks from the rendered
// text. Some host UI variants flatten code blocks into plain text, which is
// why this runs on doc text rather than markup.
func fromFencedBlock(_ *goquery.Document, text string) (Fragment, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if frag, ok := parseJSON(m[1]); ok {
			return frag, true
		}
	}
	return nil, false
}

// fromBraceScan is the loosest tier: every balanced brace-delimited substring
// in the page text, longest first since longer candidates are more likely to
// be complete objects rather than nested sub-objects.
func fromBraceScan(_ *goquery.Document, text string) (Fragment, bool) {
	candidates := balancedBraceSpans(text)
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	for _, c := range candidates {
		if frag, ok := parseJSON(c); ok {
			return frag, true
		}
	}
	return nil, false
}

// balancedBraceSpans collects every top-level {...} span. Braces inside JSON
// string literals are skipped so `{"a": "}"}` scans as one span.
func balancedBraceSpans(text string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}

// parseJSON accepts only objects and arrays; scalars are never a fragment.
func parseJSON(text string) (Fragment, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		return nil, false
	}
	var v Fragment
	if err := json.UnmarshalFromString(text, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return v, true
	default:
		return nil, false
	}
}
