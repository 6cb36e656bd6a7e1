package domain

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus represents the processing state of a campaign.
type CampaignStatus string

const (
	CampaignStatusActive         CampaignStatus = "ACTIVE"
	CampaignStatusCompleted      CampaignStatus = "COMPLETED"
	CampaignStatusPartialFailure CampaignStatus = "PARTIAL_FAILURE"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusCompleted, CampaignStatusPartialFailure:
		return true
	}
	return false
}

// ItemStatus represents the generation lifecycle of one campaign item.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusGenerating ItemStatus = "GENERATING"
	ItemStatusCompleted  ItemStatus = "COMPLETED"
	ItemStatusFailed     ItemStatus = "FAILED"
)

func (s ItemStatus) String() string { return string(s) }

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusGenerating, ItemStatusCompleted, ItemStatusFailed:
		return true
	}
	return false
}

func ParseItemStatusFromString(s string) (ItemStatus, error) {
	st := ItemStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid item status %q", ErrValidation, s)
	}
	return st, nil
}

// Campaign fans a list of ideas out into scheduled content items.
type Campaign struct {
	ID         string
	Name       string
	Mode       Mode
	Priority   Priority
	StartDate  time.Time
	EndDate    time.Time
	MaxPerDay  int
	TotalCount int
	Status     CampaignStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CampaignItem is one idea inside a campaign. Items progress through
// generation independently; one item failing never touches its siblings.
type CampaignItem struct {
	ID            string
	CampaignID    string
	ItemIndex     int
	SourceIdea    string
	Status        ItemStatus
	ProjectID     *string
	AssetURL      *string
	Error         *string
	AttemptCount  int
	MaxAttempts   int
	ScheduledDate time.Time
	PublishedAt   *time.Time
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (i *CampaignItem) Validate() error {
	if strings.TrimSpace(i.CampaignID) == "" {
		return fmt.Errorf("%w: campaign id is required", ErrValidation)
	}
	if i.ItemIndex < 0 {
		return fmt.Errorf("%w: item index must be >= 0", ErrValidation)
	}
	if strings.TrimSpace(i.SourceIdea) == "" {
		return fmt.Errorf("%w: source idea is required", ErrValidation)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: invalid item status %q", ErrValidation, i.Status)
	}
	return nil
}
