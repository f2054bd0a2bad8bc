// internal/assemble/assembler.go
package assemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/config"
	"github.com/kdelwat9/snap2mealie/internal/extract"
)

// ErrNoCaption indicates the upstream caption source supplied nothing to
// work with; no recipe can be attempted.
var ErrNoCaption = errors.New("no caption available for recipe extraction")

// Conversation is the slice of the chat session the assembler needs. Keeping
// it an interface lets the whole assembly flow run against a scripted fake.
type Conversation interface {
	Initialize(ctx context.Context, caption string) error
	Ask(ctx context.Context, prompt string) (string, error)
	AskForJSON(ctx context.Context, prompt string) (extract.Fragment, bool)
}

// Assembler issues the fixed sequence of extraction prompts over one
// conversation and merges the fragments into one document. Each AI-derived
// field-group is independent: a failed group is logged and omitted, never
// fatal. Only a missing caption or a failed Initialize aborts the run.
type Assembler struct {
	conv   Conversation
	logger *zap.Logger
	cfg    config.AssemblyConfig
	now    func() time.Time
}

// New creates an Assembler.
func New(conv Conversation, cfg config.AssemblyConfig, logger *zap.Logger) *Assembler {
	return &Assembler{
		conv:   conv,
		logger: logger.Named("assembler"),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Assemble runs the full extraction sequence against the given caption and
// returns the finalized document, stamped with the run date. The prompt order
// matches the source pipeline; the groups are order-insensitive apart from
// all depending on Initialize.
func (a *Assembler) Assemble(ctx context.Context, caption string) (*Document, error) {
	if strings.TrimSpace(caption) == "" {
		return nil, ErrNoCaption
	}

	if err := a.conv.Initialize(ctx, caption); err != nil {
		return nil, fmt.Errorf("assembly aborted: %w", err)
	}

	doc := NewDocument()

	a.mergeInstructions(ctx, doc)
	a.mergeGroup(ctx, doc, ModeInfo)
	a.mergeGroup(ctx, doc, ModeIngredients)
	doc.Merge(fixedInteractionStatistic())
	a.mergeGroup(ctx, doc, ModeName)
	a.mergeGroup(ctx, doc, ModeNutrition)
	doc.Merge(fixedDietSuitability())

	doc.Stamp(a.now())
	a.logger.Info("Recipe document assembled.", zap.Int("fields", len(doc.Fields())))
	return doc, nil
}

// mergeGroup runs one field-group prompt and merges its fragment. A failed
// group is simply absent from the final document.
func (a *Assembler) mergeGroup(ctx context.Context, doc *Document, mode Mode) {
	log := a.logger.With(zap.String("mode", string(mode)))
	log.Info("Requesting field group.")

	frag, ok := a.conv.AskForJSON(ctx, buildPrompt(mode, a.cfg.Language, 0))
	if !ok {
		log.Warn("No valid fragment for field group; omitting.")
		return
	}

	obj, ok := frag.(map[string]interface{})
	if !ok {
		log.Warn("Fragment is not a JSON object; omitting.", zap.Any("fragment", frag))
		return
	}

	doc.Merge(obj)
	log.Info("Field group merged.", zap.Int("keys", len(obj)))
}

// mergeInstructions fills recipeInstructions. When the step probe is enabled
// and answers with a plausible count, each step is fetched individually and
// the instructions become a HowToStep list; any probe or per-step failure
// falls back to the single bulk prompt.
func (a *Assembler) mergeInstructions(ctx context.Context, doc *Document) {
	if a.cfg.StepProbe {
		if steps, ok := a.collectSteps(ctx); ok {
			doc.Set("recipeInstructions", steps)
			a.logger.Info("Per-step instructions merged.", zap.Int("steps", len(steps)))
			return
		}
		a.logger.Info("Step probe unusable; falling back to bulk instructions prompt.")
	}
	a.mergeGroup(ctx, doc, ModeInstructions)
}

// collectSteps runs the step-count probe and then one prompt per step.
func (a *Assembler) collectSteps(ctx context.Context) ([]interface{}, bool) {
	html, err := a.conv.Ask(ctx, stepCountPrompt)
	if err != nil {
		a.logger.Warn("Step-count probe failed.", zap.Error(err))
		return nil, false
	}
	count, ok := extract.StepCount(html)
	if !ok || count < 1 || count > a.cfg.MaxSteps {
		a.logger.Warn("Step-count probe answer unusable.", zap.Int("count", count), zap.Bool("parsed", ok))
		return nil, false
	}
	a.logger.Info("Step count detected.", zap.Int("steps", count))

	steps := make([]interface{}, 0, count)
	for i := 1; i <= count; i++ {
		frag, ok := a.conv.AskForJSON(ctx, buildPrompt(ModeStep, a.cfg.Language, i))
		if !ok {
			a.logger.Warn("Step fragment missing; abandoning per-step flow.", zap.Int("step", i))
			return nil, false
		}
		obj, ok := frag.(map[string]interface{})
		if !ok {
			a.logger.Warn("Step fragment is not an object; abandoning per-step flow.", zap.Int("step", i))
			return nil, false
		}
		if _, present := obj["@type"]; !present {
			obj["@type"] = "HowToStep"
		}
		steps = append(steps, obj)
	}
	return steps, true
}
