// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
)

// ErrStaleElement indicates that an element reference is no longer valid,
// likely because the host application replaced that part of the DOM.
var ErrStaleElement = errors.New("element is stale or detached from the document")

// Root scopes a structural query. A zero Root queries the light DOM of the
// current document; a Root with Host set queries inside the shadow root of the
// first element matching Host.
type Root struct {
	Host string
}

// Node describes one element captured during a structural query. The Ref is an
// opaque handle valid until the next navigation or DOM replacement; callers
// must not cache it across locate calls.
type Node struct {
	Ref        string            `json:"ref"`
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	Visible    bool              `json:"visible"`
	OuterHTML  string            `json:"outerHTML"`
	Style      map[string]string `json:"style"`
}

// Attr returns the named attribute, or "" when absent.
func (n Node) Attr(name string) string {
	return n.Attributes[name]
}

// Driver is the full capability surface this system needs from a browser.
// Everything above this interface (locator, chat, assembly) is testable
// against a fake implementation; the chromedp-backed Chrome type is the only
// real implementation.
type Driver interface {
	// Query returns all elements matching selector inside root, in DOM order,
	// annotated with the attributes and computed-style facts the locator
	// filters on. An absent host element or shadow root yields an empty set,
	// not an error.
	Query(ctx context.Context, root Root, selector string) ([]Node, error)

	// SetValue clears the element's current content, assigns value, and
	// dispatches the platform's input-change notification so the host
	// application's reactive bindings observe the change. A plain value
	// assignment without the notification is a contract violation.
	SetValue(ctx context.Context, ref, value string) error

	// PressCommitKey dispatches the synthetic commit key (Enter) against the
	// element.
	PressCommitKey(ctx context.Context, ref string) error

	// Activate dispatches a synthetic activation (click) on the element.
	Activate(ctx context.Context, ref string) error

	// IsDisabled reports whether the element currently carries the disabled
	// state. Returns ErrStaleElement when the reference no longer resolves.
	IsDisabled(ctx context.Context, ref string) (bool, error)

	// ReadMarkup returns the full rendered markup of the current document.
	ReadMarkup(ctx context.Context) (string, error)
}
