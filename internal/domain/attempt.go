package domain

import "time"

// GenerationAttempt records a single provider call for a campaign item.
type GenerationAttempt struct {
	ID            string
	ItemID        string
	AttemptNumber int
	StatusCode    *int
	ResponseBody  *string
	Error         *string
	CreatedAt     time.Time
}
