// internal/chat/channel.go

// Package chat drives prompt/response turns against the host application's
// chat UI: the Channel handles one submission mechanically, the Session
// sequences turns and owns the conversation state.
package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/browser"
	"github.com/kdelwat9/snap2mealie/internal/config"
	"github.com/kdelwat9/snap2mealie/internal/locator"
)

// CompletionState reports how a turn's completion was detected.
type CompletionState int

const (
	// CompletionObserved means the submit control's disabled->enabled
	// transition was seen within the timeout.
	CompletionObserved CompletionState = iota
	// CompletionAssumed means the timeout elapsed without the transition.
	// Some host UI variants never re-enable the control in observable time,
	// so the caller proceeds to read whatever HTML is present.
	CompletionAssumed
)

func (s CompletionState) String() string {
	if s == CompletionAssumed {
		return "assumed"
	}
	return "observed"
}

// Channel submits prompts into a located input and waits for completion.
type Channel struct {
	drv    browser.Driver
	loc    *locator.Locator
	logger *zap.Logger
	cfg    config.ChatConfig
}

// NewChannel creates a prompt channel over the given driver and locator.
func NewChannel(drv browser.Driver, loc *locator.Locator, cfg config.ChatConfig, logger *zap.Logger) *Channel {
	return &Channel{
		drv:    drv,
		loc:    loc,
		logger: logger.Named("channel"),
		cfg:    cfg,
	}
}

// Submit puts text into the candidate field and triggers submission through
// two independent paths: the commit key on the field, then an activation on
// the submit control if one is locatable. Both are attempted because either
// alone may be ignored depending on the host application version; failures of
// the individual paths are logged, and Submit only errors when the value
// itself could not be set.
func (c *Channel) Submit(ctx context.Context, cand locator.Candidate, text string) error {
	if err := c.drv.SetValue(ctx, cand.Ref, text); err != nil {
		return fmt.Errorf("failed to set prompt text: %w", err)
	}

	if err := c.drv.PressCommitKey(ctx, cand.Ref); err != nil {
		c.logger.Debug("Commit key dispatch failed (non-critical).", zap.Error(err))
	}

	if submit, err := c.loc.Locate(ctx, locator.KindSubmitControl); err == nil {
		if err := c.drv.Activate(ctx, submit.Ref); err != nil {
			c.logger.Debug("Submit control activation failed (non-critical).", zap.Error(err))
		}
	} else {
		c.logger.Debug("Submit control not locatable, relying on commit key.", zap.Error(err))
	}

	c.logger.Debug("Prompt submitted.", zap.Int("text_len", len(text)), zap.Bool("degraded_input", cand.Degraded))
	return nil
}

// AwaitCompletion waits for the response turn to finish by polling for the
// submit control's disabled->enabled transition, bounded by the configured
// timeout. Timing out is not an error: completion is assumed optimistically
// and the caller reads whatever HTML is present.
func (c *Channel) AwaitCompletion(ctx context.Context) CompletionState {
	// Give the host a moment to flip the control to disabled before we start
	// watching for it to come back.
	if !sleepCtx(ctx, c.cfg.PostSubmitDelay) {
		return CompletionAssumed
	}

	deadline := time.Now().Add(c.cfg.SubmitTimeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if enabled := c.submitEnabled(ctx); enabled {
			c.logger.Debug("Submit control re-enabled; response complete.")
			return CompletionObserved
		}
		if time.Now().After(deadline) {
			c.logger.Warn("Completion wait timed out; assuming response is present.",
				zap.Duration("timeout", c.cfg.SubmitTimeout))
			return CompletionAssumed
		}
		select {
		case <-ctx.Done():
			return CompletionAssumed
		case <-ticker.C:
		}
	}
}

// submitEnabled re-locates the control on every poll because the host may
// replace the node between turns.
func (c *Channel) submitEnabled(ctx context.Context) bool {
	submit, err := c.loc.Locate(ctx, locator.KindSubmitControl)
	if err != nil {
		return false
	}
	disabled, err := c.drv.IsDisabled(ctx, submit.Ref)
	if err != nil {
		return false
	}
	return !disabled
}

// sleepCtx sleeps for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
