// internal/chat/session.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/browser"
	"github.com/kdelwat9/snap2mealie/internal/extract"
	"github.com/kdelwat9/snap2mealie/internal/locator"
)

// ErrSessionInit indicates the framing message could not be delivered; the
// whole assembly run is unusable without it.
var ErrSessionInit = errors.New("failed to establish conversation context")

// ErrNotEstablished is returned by Ask before a successful Initialize.
var ErrNotEstablished = errors.New("conversation context not established")

// Context is the conversation state owned exclusively by the Session. It is
// created when the conversation begins and discarded with the browser
// session.
type Context struct {
	SessionEstablished bool
	LastPromptSentAt   time.Time
}

// Session orchestrates sequential prompt/response turns over one Channel.
// The host UI has no concept of overlapping turns, so all calls serialize on
// an internal mutex.
type Session struct {
	id        string
	channel   *Channel
	loc       *locator.Locator
	drv       browser.Driver
	extractor *extract.Extractor
	logger    *zap.Logger

	mu    sync.Mutex
	state Context
}

// NewSession creates a conversation session. The session does not own the
// driver's lifecycle; the caller releases the browser.
func NewSession(drv browser.Driver, channel *Channel, loc *locator.Locator, extractor *extract.Extractor, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:        id,
		channel:   channel,
		loc:       loc,
		drv:       drv,
		extractor: extractor,
		logger:    logger.Named("session").With(zap.String("session_id", id)),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns a copy of the conversation state.
func (s *Session) State() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize establishes shared context once per session by sending a framing
// message built around the recipe caption. All subsequent asks share this
// context implicitly through the host application's own conversation state;
// the framing text is never resent.
func (s *Session) Initialize(ctx context.Context, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.SessionEstablished {
		s.logger.Debug("Session already established; skipping framing message.")
		return nil
	}

	framing := fmt.Sprintf(
		"I'm going to ask you questions about this recipe. "+
			"Please use this recipe information as context for all your responses: %s", caption)

	s.logger.Info("Initializing chat with recipe context.", zap.Int("caption_len", len(caption)))
	if _, err := s.send(ctx, framing); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInit, err)
	}

	s.state.SessionEstablished = true
	s.logger.Info("Chat initialized with recipe context.")
	return nil
}

// Ask submits one prompt and returns the rendered HTML snapshot after the
// turn completes. A locate failure beyond one fallback cycle terminates the
// call, not the session; the caller may retry.
func (s *Session) Ask(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.SessionEstablished {
		return "", ErrNotEstablished
	}
	return s.send(ctx, prompt)
}

// AskForJSON submits one prompt and extracts a JSON fragment from the
// response. ok=false covers both transport failure and unextractable
// responses; either way the field-group is simply absent.
func (s *Session) AskForJSON(ctx context.Context, prompt string) (extract.Fragment, bool) {
	html, err := s.Ask(ctx, prompt)
	if err != nil {
		s.logger.Warn("Prompt failed before extraction.", zap.Error(err))
		return nil, false
	}
	return s.extractor.Extract(html)
}

// send is the single prompt/response cycle: locate input, submit, await
// completion, read markup. Callers hold s.mu.
func (s *Session) send(ctx context.Context, prompt string) (string, error) {
	input, err := s.loc.Locate(ctx, locator.KindInput)
	if err != nil {
		if !errors.Is(err, locator.ErrNotFound) {
			return "", err
		}
		// Degraded retry: force the first unfiltered candidate. Best-effort,
		// and the last resort before giving up on this turn.
		input, err = s.loc.LocateForced(ctx, locator.KindInput)
		if err != nil {
			return "", fmt.Errorf("input not locatable after fallback: %w", err)
		}
	}

	if err := s.channel.Submit(ctx, input, prompt); err != nil {
		return "", err
	}
	s.state.LastPromptSentAt = time.Now()

	state := s.channel.AwaitCompletion(ctx)
	s.logger.Debug("Turn completed.", zap.String("completion", state.String()))

	html, err := s.drv.ReadMarkup(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read response markup: %w", err)
	}
	return html, nil
}
