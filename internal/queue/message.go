package queue

import (
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/internal/domain"
)

// GenerationMessage is the broker payload for campaign item generation.
type GenerationMessage struct {
	ItemID        string          `json:"itemId"`
	CampaignID    string          `json:"campaignId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Mode          domain.Mode     `json:"mode"`
	Priority      domain.Priority `json:"priority"`
}

func (m GenerationMessage) Validate() error {
	if strings.TrimSpace(m.ItemID) == "" {
		return fmt.Errorf("itemId is required")
	}
	if strings.TrimSpace(m.CampaignID) == "" {
		return fmt.Errorf("campaignId is required")
	}
	if !m.Mode.IsValid() {
		return fmt.Errorf("invalid mode %q", m.Mode)
	}
	if !m.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", m.Priority)
	}
	return nil
}
