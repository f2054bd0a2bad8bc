package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepCount(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected int
		ok       bool
	}{
		{
			name:     "bare number reply",
			html:     "<html><body><p>7</p></body></html>",
			expected: 7,
			ok:       true,
		},
		{
			name:     "number embedded in prose",
			html:     "<html><body><p>This recipe has 5 steps.</p></body></html>",
			expected: 5,
			ok:       true,
		},
		{
			name: "most recent paragraph wins",
			html: `<html><body>
				<p>How many steps are in this recipe?</p>
				<p>12</p>
			</body></html>`,
			expected: 12,
			ok:       true,
		},
		{
			name: "trailing empty paragraphs are skipped",
			html: "<html><body><p>4</p><p>  </p><p></p></body></html>",
			expected: 4,
			ok:       true,
		},
		{
			name: "no number anywhere",
			html: "<html><body><p>I'm not sure.</p></body></html>",
			ok:   false,
		},
		{
			name: "no paragraphs",
			html: "<html><body><div>3</div></body></html>",
			ok:   false,
		},
		{
			name: "zero is not a usable count",
			html: "<html><body><p>0</p></body></html>",
			ok:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := StepCount(tc.html)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, n)
			}
		})
	}
}
