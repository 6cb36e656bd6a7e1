package wizard

import (
	"fmt"

	"github.com/reelforge/reelforge/internal/domain"
)

// Context carries the per-project settings that gate conditional steps.
// It is passed explicitly into every lookup so the table stays pure.
type Context struct {
	VoiceoverEnabled bool
	CaptionsEnabled  bool
}

// StepDefinition declares one stage of a mode's wizard. A nil VisibleWhen
// means the step is always visible.
type StepDefinition struct {
	ID          string
	VisibleWhen func(Context) bool
}

// Step ids shared across modes. The export step is always last and acts as
// the terminal latch for every mode.
const (
	StepExport     = "export"
	StepScript     = "script"
	StepVoiceover  = "voiceover"
	StepCaptions   = "captions"
	StepConcept    = "concept"
	StepVisuals    = "visuals"
	StepAudio      = "audio"
	StepWorld      = "world"
	StepStoryboard = "storyboard"
	StepAnimatic   = "animatic"
	StepCharacter  = "character"
	StepScenes     = "scenes"
	StepProduct    = "product"
	StepBrand      = "brand"
	StepStyle      = "style"
	StepAnimation  = "animation"
	StepIdea       = "idea"
	StepPages      = "pages"
	StepNarration  = "narration"
)

func whenVoiceover(ctx Context) bool { return ctx.VoiceoverEnabled }
func whenCaptions(ctx Context) bool  { return ctx.CaptionsEnabled }

// stepTables is the static per-mode step order. Declared once at startup,
// never mutated.
var stepTables = map[domain.Mode][]StepDefinition{
	domain.ModeAmbient: {
		{ID: StepConcept},
		{ID: StepVisuals},
		{ID: StepAudio},
		{ID: StepExport},
	},
	domain.ModeNarrative: {
		{ID: StepScript},
		{ID: StepWorld},
		{ID: StepStoryboard},
		{ID: StepVoiceover, VisibleWhen: whenVoiceover},
		{ID: StepAnimatic},
		{ID: StepExport},
	},
	domain.ModeVlog: {
		{ID: StepCharacter},
		{ID: StepScript},
		{ID: StepVoiceover, VisibleWhen: whenVoiceover},
		{ID: StepScenes},
		{ID: StepCaptions, VisibleWhen: whenCaptions},
		{ID: StepExport},
	},
	domain.ModeCommerce: {
		{ID: StepProduct},
		{ID: StepScript},
		{ID: StepVisuals},
		{ID: StepCaptions, VisibleWhen: whenCaptions},
		{ID: StepExport},
	},
	domain.ModeLogo: {
		{ID: StepBrand},
		{ID: StepStyle},
		{ID: StepAnimation},
		{ID: StepExport},
	},
	domain.ModeStory: {
		{ID: StepIdea},
		{ID: StepPages},
		{ID: StepNarration, VisibleWhen: whenVoiceover},
		{ID: StepExport},
	},
}

// Steps returns the full static step table for a mode, conditional steps
// included.
func Steps(mode domain.Mode) ([]StepDefinition, error) {
	steps, ok := stepTables[mode]
	if !ok {
		return nil, fmt.Errorf("%w: invalid mode %q", domain.ErrValidation, mode)
	}
	return steps, nil
}

// VisibleSteps filters a mode's step table against the supplied context,
// preserving the relative order of the remaining steps.
func VisibleSteps(mode domain.Mode, ctx Context) ([]StepDefinition, error) {
	steps, err := Steps(mode)
	if err != nil {
		return nil, err
	}

	visible := make([]StepDefinition, 0, len(steps))
	for _, step := range steps {
		if step.VisibleWhen == nil || step.VisibleWhen(ctx) {
			visible = append(visible, step)
		}
	}
	return visible, nil
}

// IndexOf returns a step's position within the visible sequence of a mode.
func IndexOf(mode domain.Mode, stepID string, ctx Context) (int, error) {
	if !stepDefined(mode, stepID) {
		return 0, &StepNotFoundError{Mode: mode, StepID: stepID}
	}

	visible, err := VisibleSteps(mode, ctx)
	if err != nil {
		return 0, err
	}

	for i, step := range visible {
		if step.ID == stepID {
			return i, nil
		}
	}

	return 0, &StepHiddenError{Mode: mode, StepID: stepID}
}

func stepDefined(mode domain.Mode, stepID string) bool {
	for _, step := range stepTables[mode] {
		if step.ID == stepID {
			return true
		}
	}
	return false
}
