// internal/locator/locator.go

// Package locator finds the chat UI's interactive elements. The host
// application's DOM, including its shadow boundary, changes across releases,
// so location is two-tiered: a narrow, high-confidence query inside the chat
// widget's shadow root first, then a broad light-DOM sweep, with visibility
// and decoy filtering applied to whatever comes back.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/artifacts"
	"github.com/kdelwat9/snap2mealie/internal/browser"
	"github.com/kdelwat9/snap2mealie/internal/config"
)

// ErrNotFound is the recoverable failure signaled when no acceptable
// candidate exists after both tiers and filtering. Callers decide whether to
// retry or degrade to LocateForced.
var ErrNotFound = errors.New("no usable element candidate found")

// Kind selects which interactive element to locate.
type Kind int

const (
	KindInput Kind = iota
	KindSubmitControl
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindSubmitControl:
		return "submit_control"
	default:
		return "unknown"
	}
}

// Candidate is one located element. Produced fresh on every Locate call and
// never cached, because the underlying DOM may have been replaced.
type Candidate struct {
	Ref              string
	Tag              string
	Attributes       map[string]string
	Visible          bool
	HiddenStateField bool
	// Degraded marks a candidate returned by the forced fallback, which skips
	// the visibility and decoy filters.
	Degraded bool
}

// Locator performs two-tier element location over a browser Driver.
type Locator struct {
	drv    browser.Driver
	sink   *artifacts.Sink
	logger *zap.Logger
	cfg    config.LocatorConfig
}

// New creates a Locator. sink may be nil to disable diagnostics.
func New(drv browser.Driver, cfg config.LocatorConfig, sink *artifacts.Sink, logger *zap.Logger) *Locator {
	return &Locator{
		drv:    drv,
		sink:   sink,
		logger: logger.Named("locator"),
		cfg:    cfg,
	}
}

// Locate finds the first acceptable element of the given kind, in DOM order.
// The shadow tier is polled within a bounded window because the widget
// renders asynchronously; the light-DOM tier is a single query. On an empty
// filtered set it dumps the unfiltered candidates for offline inspection and
// returns ErrNotFound.
func (l *Locator) Locate(ctx context.Context, kind Kind) (Candidate, error) {
	raw, tier, err := l.gather(ctx, kind)
	if err != nil {
		return Candidate{}, err
	}

	filtered := l.filter(raw)
	if len(filtered) > 0 {
		c := filtered[0]
		l.logger.Debug("Element located.",
			zap.String("kind", kind.String()),
			zap.String("tier", tier),
			zap.String("tag", c.Tag),
			zap.Int("raw_candidates", len(raw)),
			zap.Int("filtered_candidates", len(filtered)))
		return c, nil
	}

	l.logger.Warn("No visible candidate after filtering.",
		zap.String("kind", kind.String()),
		zap.Int("raw_candidates", len(raw)))
	l.dumpDiagnostics(ctx, kind, raw)
	return Candidate{}, fmt.Errorf("locate %s: %w", kind.String(), ErrNotFound)
}

// LocateForced is the degraded path: it returns the first unfiltered
// candidate even if hidden, explicitly marked Degraded. Used by callers after
// Locate has already failed, on the theory that a hidden field may still
// accept a value.
func (l *Locator) LocateForced(ctx context.Context, kind Kind) (Candidate, error) {
	raw, _, err := l.gather(ctx, kind)
	if err != nil {
		return Candidate{}, err
	}
	if len(raw) == 0 {
		return Candidate{}, fmt.Errorf("forced locate %s: %w", kind.String(), ErrNotFound)
	}
	c := toCandidate(raw[0], l.cfg.DecoyFieldNames)
	c.Degraded = true
	l.logger.Warn("Forcing first unfiltered candidate (degraded).",
		zap.String("kind", kind.String()), zap.String("tag", c.Tag), zap.Bool("visible", c.Visible))
	return c, nil
}

// gather runs the two-tier search and returns the raw (unfiltered) nodes plus
// the tier that produced them.
func (l *Locator) gather(ctx context.Context, kind Kind) ([]browser.Node, string, error) {
	// Tier 1: narrow selector behind the shadow boundary, polled within a
	// bounded window. Only the input lives inside the widget; the submit
	// control is queried in both tiers with the same selector.
	if l.cfg.HostElement != "" {
		nodes, err := l.pollShadow(ctx, kind)
		if err != nil {
			return nil, "", err
		}
		if len(nodes) > 0 {
			return nodes, "shadow", nil
		}
		l.logger.Info("Shadow tier yielded nothing, falling back to light DOM.",
			zap.String("kind", kind.String()), zap.String("host", l.cfg.HostElement))
	}

	// Tier 2: broad selector over the light DOM.
	nodes, err := l.drv.Query(ctx, browser.Root{}, l.broadSelector(kind))
	if err != nil {
		return nil, "", fmt.Errorf("light DOM query failed: %w", err)
	}
	return nodes, "light", nil
}

func (l *Locator) pollShadow(ctx context.Context, kind Kind) ([]browser.Node, error) {
	deadline := time.Now().Add(l.cfg.ShadowWait)
	selector := l.narrowSelector(kind)
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		nodes, err := l.drv.Query(ctx, browser.Root{Host: l.cfg.HostElement}, selector)
		if err != nil {
			return nil, fmt.Errorf("shadow query failed: %w", err)
		}
		if len(nodes) > 0 {
			return nodes, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locator) narrowSelector(kind Kind) string {
	if kind == KindSubmitControl {
		return l.cfg.SubmitSelector
	}
	return l.cfg.InputSelector
}

func (l *Locator) broadSelector(kind Kind) string {
	if kind == KindSubmitControl {
		return l.cfg.SubmitSelector
	}
	return l.cfg.FallbackInputSelector
}

// filter drops invisible elements and known decoy fields, preserving DOM
// order so the first survivor is a stable, deterministic pick.
func (l *Locator) filter(nodes []browser.Node) []Candidate {
	out := make([]Candidate, 0, len(nodes))
	for _, n := range nodes {
		c := toCandidate(n, l.cfg.DecoyFieldNames)
		if !c.Visible {
			continue
		}
		if c.HiddenStateField {
			l.logger.Debug("Skipping decoy field.", zap.String("name", c.Attributes["name"]))
			continue
		}
		out = append(out, c)
	}
	return out
}

func toCandidate(n browser.Node, decoyNames []string) Candidate {
	return Candidate{
		Ref:              n.Ref,
		Tag:              n.Tag,
		Attributes:       n.Attributes,
		Visible:          n.Visible,
		HiddenStateField: isDecoy(n, decoyNames),
	}
}

// isDecoy reports whether the node is one of the hidden state fields the host
// application renders alongside the real chat input.
func isDecoy(n browser.Node, decoyNames []string) bool {
	if strings.EqualFold(n.Attr("type"), "hidden") {
		return true
	}
	name := n.Attr("name")
	for _, decoy := range decoyNames {
		if strings.EqualFold(name, decoy) {
			return true
		}
	}
	return false
}

// dumpDiagnostics persists the unfiltered candidate set (markup plus computed
// style per candidate). Best-effort only; the sink swallows its own failures.
func (l *Locator) dumpDiagnostics(ctx context.Context, kind Kind, raw []browser.Node) {
	tag := "no_candidates_" + kind.String()

	type dump struct {
		Index     int               `json:"index"`
		Tag       string            `json:"tag"`
		Attrs     map[string]string `json:"attributes"`
		Visible   bool              `json:"visible"`
		Style     map[string]string `json:"style"`
		OuterHTML string            `json:"outer_html"`
	}
	dumps := make([]dump, 0, len(raw))
	for i, n := range raw {
		dumps = append(dumps, dump{
			Index:     i,
			Tag:       n.Tag,
			Attrs:     n.Attributes,
			Visible:   n.Visible,
			Style:     n.Style,
			OuterHTML: n.OuterHTML,
		})
	}
	l.sink.SaveJSON(tag, dumps)

	if html, err := l.drv.ReadMarkup(ctx); err == nil {
		l.sink.SaveHTML(tag, html)
	}
}
