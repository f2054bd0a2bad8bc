// internal/extract/stepcount.go
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var digitsRe = regexp.MustCompile(`\d+`)

// StepCount scans a response snapshot for the model's answer to the
// "how many steps" probe. The reply is expected to be a bare number, but the
// page accumulates all turns, so the scan walks paragraphs back to front and
// takes the first integer found in the most recent text.
func StepCount(html string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	paragraphs := doc.Find("p")
	for i := paragraphs.Length() - 1; i >= 0; i-- {
		text := strings.TrimSpace(paragraphs.Eq(i).Text())
		if text == "" {
			continue
		}
		if m := digitsRe.FindString(text); m != "" {
			n, err := strconv.Atoi(m)
			if err != nil || n <= 0 {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
