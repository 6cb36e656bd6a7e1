package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode identifies a content-creation pipeline variant.
type Mode string

const (
	ModeAmbient   Mode = "AMBIENT"
	ModeNarrative Mode = "NARRATIVE"
	ModeVlog      Mode = "VLOG"
	ModeCommerce  Mode = "COMMERCE"
	ModeLogo      Mode = "LOGO"
	ModeStory     Mode = "STORY"
)

func (m Mode) String() string { return string(m) }

func (m Mode) IsValid() bool {
	switch m {
	case ModeAmbient, ModeNarrative, ModeVlog, ModeCommerce, ModeLogo, ModeStory:
		return true
	}
	return false
}

func ParseModeFromString(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid mode %q", ErrValidation, s)
	}
	return m, nil
}

// Priority controls queue ordering for campaign generation jobs.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

const MaxProjectTitle = 200

// Project is one in-progress content item moving through a mode's wizard.
// Progression fields (current step, completed/dirty step sets, per-step
// payloads) are always persisted together in one logical write.
type Project struct {
	ID               string
	Title            string
	Mode             Mode
	VoiceoverEnabled bool
	CaptionsEnabled  bool
	CurrentStep      string
	CompletedSteps   []string
	DirtySteps       []string
	StepPayloads     map[string]json.RawMessage
	CampaignItemID   *string
	AssetURL         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if titleLen := len([]rune(p.Title)); titleLen > MaxProjectTitle {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxProjectTitle, titleLen)
	}
	if !p.Mode.IsValid() {
		return fmt.Errorf("%w: invalid mode %q", ErrValidation, p.Mode)
	}
	return nil
}
