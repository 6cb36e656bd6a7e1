package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/reelforge/reelforge/internal/domain"
)

// Progression tracks where one project sits inside its mode's wizard: the
// active step, the set of completed steps, the set of steps whose payload
// changed since the last save, and the opaque per-step payloads themselves.
// All operations are pure in-memory mutations; persistence happens above.
type Progression struct {
	Mode        domain.Mode
	CurrentStep string

	completed map[string]struct{}
	dirty     map[string]struct{}
	payloads  map[string]json.RawMessage
}

// NewProgression starts a wizard at the first visible step of the mode.
func NewProgression(mode domain.Mode, ctx Context) (*Progression, error) {
	visible, err := VisibleSteps(mode, ctx)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, fmt.Errorf("%w: mode %s has no visible steps", domain.ErrValidation, mode)
	}

	return &Progression{
		Mode:        mode,
		CurrentStep: visible[0].ID,
		completed:   make(map[string]struct{}),
		dirty:       make(map[string]struct{}),
		payloads:    make(map[string]json.RawMessage),
	}, nil
}

// Restore rebuilds a progression from persisted fields. Every referenced
// step must exist in the mode's definition table.
func Restore(
	mode domain.Mode,
	currentStep string,
	completed []string,
	dirty []string,
	payloads map[string]json.RawMessage,
) (*Progression, error) {
	if !stepDefined(mode, currentStep) {
		return nil, &StepNotFoundError{Mode: mode, StepID: currentStep}
	}

	p := &Progression{
		Mode:        mode,
		CurrentStep: currentStep,
		completed:   make(map[string]struct{}, len(completed)),
		dirty:       make(map[string]struct{}, len(dirty)),
		payloads:    make(map[string]json.RawMessage, len(payloads)),
	}

	for _, id := range completed {
		if !stepDefined(mode, id) {
			return nil, &StepNotFoundError{Mode: mode, StepID: id}
		}
		p.completed[id] = struct{}{}
	}
	for _, id := range dirty {
		if !stepDefined(mode, id) {
			return nil, &StepNotFoundError{Mode: mode, StepID: id}
		}
		p.dirty[id] = struct{}{}
	}
	for id, raw := range payloads {
		if !stepDefined(mode, id) {
			return nil, &StepNotFoundError{Mode: mode, StepID: id}
		}
		p.payloads[id] = raw
	}

	return p, nil
}

// Clone returns a deep copy used as the rollback snapshot for two-phase
// transition commits.
func (p *Progression) Clone() *Progression {
	if p == nil {
		return nil
	}

	clone := &Progression{
		Mode:        p.Mode,
		CurrentStep: p.CurrentStep,
		completed:   make(map[string]struct{}, len(p.completed)),
		dirty:       make(map[string]struct{}, len(p.dirty)),
		payloads:    make(map[string]json.RawMessage, len(p.payloads)),
	}
	for id := range p.completed {
		clone.completed[id] = struct{}{}
	}
	for id := range p.dirty {
		clone.dirty[id] = struct{}{}
	}
	for id, raw := range p.payloads {
		clone.payloads[id] = raw
	}
	return clone
}

func (p *Progression) IsCompleted(stepID string) bool {
	_, ok := p.completed[stepID]
	return ok
}

func (p *Progression) IsDirty(stepID string) bool {
	_, ok := p.dirty[stepID]
	return ok
}

// CompletedSteps lists completed steps in the mode's definition order so
// persistence and responses stay deterministic.
func (p *Progression) CompletedSteps() []string {
	return p.orderedSubset(p.completed)
}

// DirtySteps lists dirty steps in the mode's definition order.
func (p *Progression) DirtySteps() []string {
	return p.orderedSubset(p.dirty)
}

func (p *Progression) orderedSubset(set map[string]struct{}) []string {
	ordered := make([]string, 0, len(set))
	for _, step := range stepTables[p.Mode] {
		if _, ok := set[step.ID]; ok {
			ordered = append(ordered, step.ID)
		}
	}
	return ordered
}

// Payload returns a step's opaque payload, or nil if none was saved.
func (p *Progression) Payload(stepID string) json.RawMessage {
	return p.payloads[stepID]
}

// Payloads returns a copy of all saved step payloads.
func (p *Progression) Payloads() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(p.payloads))
	for id, raw := range p.payloads {
		out[id] = raw
	}
	return out
}

// SetPayload stores a step's form state and marks the step dirty. The engine
// never interprets the payload contents.
func (p *Progression) SetPayload(stepID string, raw json.RawMessage) error {
	if !stepDefined(p.Mode, stepID) {
		return &StepNotFoundError{Mode: p.Mode, StepID: stepID}
	}
	p.payloads[stepID] = raw
	p.dirty[stepID] = struct{}{}
	return nil
}

// MarkCurrentComplete idempotently records the active step as completed.
func (p *Progression) MarkCurrentComplete() {
	p.completed[p.CurrentStep] = struct{}{}
}

// MarkDirty flags a step's downstream artifacts as stale. Whether staleness
// cascades to later steps is the caller's policy; the engine only stores the
// set.
func (p *Progression) MarkDirty(stepID string) error {
	if !stepDefined(p.Mode, stepID) {
		return &StepNotFoundError{Mode: p.Mode, StepID: stepID}
	}
	p.dirty[stepID] = struct{}{}
	return nil
}

// ClearDirty removes a step from the dirty set, typically after the caller
// regenerated whatever depended on it.
func (p *Progression) ClearDirty(stepID string) error {
	if !stepDefined(p.Mode, stepID) {
		return &StepNotFoundError{Mode: p.Mode, StepID: stepID}
	}
	delete(p.dirty, stepID)
	return nil
}

// AtTerminal reports whether the cursor sits on the last visible step.
func (p *Progression) AtTerminal(ctx Context) (bool, error) {
	visible, err := VisibleSteps(p.Mode, ctx)
	if err != nil {
		return false, err
	}
	idx, err := p.currentIndex(visible)
	if err != nil {
		return false, err
	}
	return idx == len(visible)-1, nil
}

// Next advances the cursor to the following visible step. The active step
// must be completed first. At the terminal step Next is an idempotent no-op.
func (p *Progression) Next(ctx Context) error {
	visible, err := VisibleSteps(p.Mode, ctx)
	if err != nil {
		return err
	}

	idx, err := p.currentIndex(visible)
	if err != nil {
		return err
	}
	if idx == len(visible)-1 {
		return nil
	}

	if !p.IsCompleted(p.CurrentStep) {
		return &StepNotReachableError{
			StepID:      visible[idx+1].ID,
			CurrentStep: p.CurrentStep,
		}
	}

	p.CurrentStep = visible[idx+1].ID
	return nil
}

// Back moves the cursor to the previous visible step without touching the
// completed set. Rejected once the terminal step has been entered; a no-op
// at the first step.
func (p *Progression) Back(ctx Context) error {
	visible, err := VisibleSteps(p.Mode, ctx)
	if err != nil {
		return err
	}

	idx, err := p.currentIndex(visible)
	if err != nil {
		return err
	}
	if idx == len(visible)-1 {
		return &TerminalStepLockedError{StepID: p.CurrentStep}
	}
	if idx == 0 {
		return nil
	}

	p.CurrentStep = visible[idx-1].ID
	return nil
}

// Jump moves the cursor to an arbitrary visible step, allowed only if the
// target precedes the cursor, equals it, or was already completed. All jumps
// are rejected once the terminal step has been entered.
func (p *Progression) Jump(targetStepID string, ctx Context) error {
	visible, err := VisibleSteps(p.Mode, ctx)
	if err != nil {
		return err
	}

	idx, err := p.currentIndex(visible)
	if err != nil {
		return err
	}
	if idx == len(visible)-1 {
		return &TerminalStepLockedError{StepID: p.CurrentStep}
	}

	targetIdx, err := IndexOf(p.Mode, targetStepID, ctx)
	if err != nil {
		return err
	}

	if targetIdx > idx && !p.IsCompleted(targetStepID) {
		return &StepNotReachableError{
			StepID:      targetStepID,
			CurrentStep: p.CurrentStep,
		}
	}

	p.CurrentStep = targetStepID
	return nil
}

func (p *Progression) currentIndex(visible []StepDefinition) (int, error) {
	for i, step := range visible {
		if step.ID == p.CurrentStep {
			return i, nil
		}
	}
	// The cursor can fall out of the visible sequence when the project's
	// settings change between calls, e.g. voiceover disabled while the
	// cursor sits on the voiceover step.
	if stepDefined(p.Mode, p.CurrentStep) {
		return 0, &StepHiddenError{Mode: p.Mode, StepID: p.CurrentStep}
	}
	return 0, &StepNotFoundError{Mode: p.Mode, StepID: p.CurrentStep}
}
