package wizard

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/reelforge/reelforge/internal/domain"
)

func mustProgression(t *testing.T, mode domain.Mode, ctx Context) *Progression {
	t.Helper()

	p, err := NewProgression(mode, ctx)
	if err != nil {
		t.Fatalf("NewProgression() error = %v", err)
	}
	return p
}

// advanceTo completes and advances until the cursor reaches the target step.
func advanceTo(t *testing.T, p *Progression, ctx Context, target string) {
	t.Helper()

	for p.CurrentStep != target {
		p.MarkCurrentComplete()
		before := p.CurrentStep
		if err := p.Next(ctx); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if p.CurrentStep == before {
			t.Fatalf("cursor stuck at %q before reaching %q", before, target)
		}
	}
}

func TestNewProgressionStartsAtFirstVisibleStep(t *testing.T) {
	t.Parallel()

	p := mustProgression(t, domain.ModeNarrative, Context{})
	if p.CurrentStep != StepScript {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepScript)
	}
	if got := p.CompletedSteps(); len(got) != 0 {
		t.Fatalf("CompletedSteps() = %v, want empty", got)
	}
}

func TestNextRequiresCurrentComplete(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)

	err := p.Next(ctx)
	var notReachable *StepNotReachableError
	if !errors.As(err, &notReachable) {
		t.Fatalf("Next() error = %v, want *StepNotReachableError", err)
	}
	if notReachable.CurrentStep != StepScript {
		t.Fatalf("CurrentStep in error = %q, want %q", notReachable.CurrentStep, StepScript)
	}
	if p.CurrentStep != StepScript {
		t.Fatalf("cursor moved to %q on rejected transition", p.CurrentStep)
	}

	p.MarkCurrentComplete()
	if err := p.Next(ctx); err != nil {
		t.Fatalf("Next() after complete error = %v", err)
	}
	if p.CurrentStep != StepWorld {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepWorld)
	}
}

func TestNextAtTerminalIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeAmbient, ctx)
	advanceTo(t, p, ctx, StepExport)

	if err := p.Next(ctx); err != nil {
		t.Fatalf("Next() at terminal error = %v", err)
	}
	if p.CurrentStep != StepExport {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepExport)
	}
}

func TestBackDoesNotAlterCompleted(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepStoryboard)

	completedBefore := p.CompletedSteps()

	if err := p.Back(ctx); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if p.CurrentStep != StepWorld {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepWorld)
	}
	if got := p.CompletedSteps(); !reflect.DeepEqual(got, completedBefore) {
		t.Fatalf("CompletedSteps() = %v, want %v", got, completedBefore)
	}
}

func TestBackAtFirstStepIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeLogo, ctx)

	if err := p.Back(ctx); err != nil {
		t.Fatalf("Back() at first step error = %v", err)
	}
	if p.CurrentStep != StepBrand {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepBrand)
	}
}

func TestTerminalLatch(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepExport)

	snapshot := p.Clone()

	var locked *TerminalStepLockedError
	if err := p.Back(ctx); !errors.As(err, &locked) {
		t.Fatalf("Back() at terminal error = %v, want *TerminalStepLockedError", err)
	}
	if err := p.Jump(StepScript, ctx); !errors.As(err, &locked) {
		t.Fatalf("Jump() at terminal error = %v, want *TerminalStepLockedError", err)
	}
	if err := p.Jump(StepExport, ctx); !errors.As(err, &locked) {
		t.Fatalf("Jump(terminal) at terminal error = %v, want *TerminalStepLockedError", err)
	}
	if err := p.Next(ctx); err != nil {
		t.Fatalf("Next() at terminal error = %v", err)
	}

	if p.CurrentStep != snapshot.CurrentStep {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, snapshot.CurrentStep)
	}
	if !reflect.DeepEqual(p.CompletedSteps(), snapshot.CompletedSteps()) {
		t.Fatal("completed set changed by rejected transitions")
	}
}

func TestJumpBackwardAlwaysAllowed(t *testing.T) {
	t.Parallel()

	ctx := Context{VoiceoverEnabled: true}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepAnimatic)

	if err := p.Jump(StepScript, ctx); err != nil {
		t.Fatalf("Jump() backward error = %v", err)
	}
	if p.CurrentStep != StepScript {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepScript)
	}
}

func TestJumpForwardToCompletedStep(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepAnimatic)

	if err := p.Jump(StepScript, ctx); err != nil {
		t.Fatalf("Jump() backward error = %v", err)
	}

	// Animatic was never completed; storyboard was.
	if err := p.Jump(StepStoryboard, ctx); err != nil {
		t.Fatalf("Jump() to completed step error = %v", err)
	}
	if p.CurrentStep != StepStoryboard {
		t.Fatalf("CurrentStep = %q, want %q", p.CurrentStep, StepStoryboard)
	}
}

func TestJumpToIncompleteFutureStep(t *testing.T) {
	t.Parallel()

	// Voiceover disabled: 5 visible steps, storyboard then animatic.
	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepStoryboard)

	err := p.Jump(StepExport, ctx)
	var notReachable *StepNotReachableError
	if !errors.As(err, &notReachable) {
		t.Fatalf("Jump() error = %v, want *StepNotReachableError", err)
	}
	if notReachable.StepID != StepExport {
		t.Fatalf("StepID = %q, want %q", notReachable.StepID, StepExport)
	}
	if p.CurrentStep != StepStoryboard {
		t.Fatalf("cursor moved to %q on rejected jump", p.CurrentStep)
	}
}

func TestJumpToHiddenStep(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	p := mustProgression(t, domain.ModeNarrative, ctx)

	err := p.Jump(StepVoiceover, ctx)
	var hidden *StepHiddenError
	if !errors.As(err, &hidden) {
		t.Fatalf("Jump() error = %v, want *StepHiddenError", err)
	}
}

func TestCompletedOnlyGrows(t *testing.T) {
	t.Parallel()

	ctx := Context{VoiceoverEnabled: true, CaptionsEnabled: true}
	p := mustProgression(t, domain.ModeVlog, ctx)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		for _, id := range p.CompletedSteps() {
			seen[id] = struct{}{}
		}
		if len(p.CompletedSteps()) < len(seen) {
			t.Fatalf("completed set shrank: %v", p.CompletedSteps())
		}

		switch i % 4 {
		case 0:
			p.MarkCurrentComplete()
		case 1:
			_ = p.Next(ctx)
		case 2:
			_ = p.Back(ctx)
		case 3:
			_ = p.Jump(StepCharacter, ctx)
		}
	}
}

func TestMarkCurrentCompleteIdempotent(t *testing.T) {
	t.Parallel()

	p := mustProgression(t, domain.ModeAmbient, Context{})
	p.MarkCurrentComplete()
	p.MarkCurrentComplete()

	if got := p.CompletedSteps(); len(got) != 1 || got[0] != StepConcept {
		t.Fatalf("CompletedSteps() = %v, want [%s]", got, StepConcept)
	}
}

func TestDirtyTracking(t *testing.T) {
	t.Parallel()

	p := mustProgression(t, domain.ModeNarrative, Context{})

	if err := p.SetPayload(StepScript, json.RawMessage(`{"text":"draft one"}`)); err != nil {
		t.Fatalf("SetPayload() error = %v", err)
	}
	if !p.IsDirty(StepScript) {
		t.Fatal("script should be dirty after payload change")
	}

	if err := p.MarkDirty(StepStoryboard); err != nil {
		t.Fatalf("MarkDirty() error = %v", err)
	}
	if got := p.DirtySteps(); !reflect.DeepEqual(got, []string{StepScript, StepStoryboard}) {
		t.Fatalf("DirtySteps() = %v, want [script storyboard]", got)
	}

	if err := p.ClearDirty(StepScript); err != nil {
		t.Fatalf("ClearDirty() error = %v", err)
	}
	if p.IsDirty(StepScript) {
		t.Fatal("script should be clean after ClearDirty")
	}

	err := p.MarkDirty("render")
	var notFound *StepNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("MarkDirty() error = %v, want *StepNotFoundError", err)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := Context{VoiceoverEnabled: true}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepVoiceover)
	if err := p.SetPayload(StepScript, json.RawMessage(`{"text":"final"}`)); err != nil {
		t.Fatalf("SetPayload() error = %v", err)
	}

	restored, err := Restore(p.Mode, p.CurrentStep, p.CompletedSteps(), p.DirtySteps(), p.Payloads())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if restored.CurrentStep != p.CurrentStep {
		t.Fatalf("CurrentStep = %q, want %q", restored.CurrentStep, p.CurrentStep)
	}
	if !reflect.DeepEqual(restored.CompletedSteps(), p.CompletedSteps()) {
		t.Fatalf("CompletedSteps() = %v, want %v", restored.CompletedSteps(), p.CompletedSteps())
	}
	if !reflect.DeepEqual(restored.DirtySteps(), p.DirtySteps()) {
		t.Fatalf("DirtySteps() = %v, want %v", restored.DirtySteps(), p.DirtySteps())
	}
	if string(restored.Payload(StepScript)) != `{"text":"final"}` {
		t.Fatalf("Payload(script) = %s", restored.Payload(StepScript))
	}
}

func TestRestoreRejectsUnknownStep(t *testing.T) {
	t.Parallel()

	_, err := Restore(domain.ModeAmbient, "storyboard", nil, nil, nil)
	var notFound *StepNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Restore() error = %v, want *StepNotFoundError", err)
	}
}

func TestCursorHiddenAfterContextChange(t *testing.T) {
	t.Parallel()

	ctx := Context{VoiceoverEnabled: true}
	p := mustProgression(t, domain.ModeNarrative, ctx)
	advanceTo(t, p, ctx, StepVoiceover)

	// Voiceover turned off while the cursor sits on the voiceover step.
	err := p.Next(Context{})
	var hidden *StepHiddenError
	if !errors.As(err, &hidden) {
		t.Fatalf("Next() error = %v, want *StepHiddenError", err)
	}
}
