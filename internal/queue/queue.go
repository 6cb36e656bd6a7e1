package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/internal/domain"
)

// Publisher publishes generation messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg GenerationMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg GenerationMessage) error

// Consumer consumes generation messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

var supportedModes = []domain.Mode{
	domain.ModeAmbient,
	domain.ModeNarrative,
	domain.ModeVlog,
	domain.ModeCommerce,
	domain.ModeLogo,
	domain.ModeStory,
}

const (
	// queueMaxPriority is the RabbitMQ x-max-priority value for work queues.
	queueMaxPriority int32 = 3
)

// QueueName returns the mode work queue name, e.g. gen.ambient.
func QueueName(mode domain.Mode) string {
	return fmt.Sprintf("gen.%s", strings.ToLower(mode.String()))
}

// DLQName returns the dead-letter queue name for a mode, e.g. dlq.gen.ambient.
func DLQName(mode domain.Mode) string {
	return fmt.Sprintf("dlq.%s", QueueName(mode))
}

// WorkQueueNames returns all mode work queues (6 total).
func WorkQueueNames() []string {
	queues := make([]string, 0, len(supportedModes))
	for _, mode := range supportedModes {
		queues = append(queues, QueueName(mode))
	}
	return queues
}

// DLQNames returns all dead-letter queues (6 total).
func DLQNames() []string {
	queues := make([]string, 0, len(supportedModes))
	for _, mode := range supportedModes {
		queues = append(queues, DLQName(mode))
	}
	return queues
}

// PriorityValue maps campaign priority to RabbitMQ message priority.
func PriorityValue(priority domain.Priority) uint8 {
	switch priority {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityNormal:
		return 2
	case domain.PriorityLow:
		return 1
	default:
		return 0
	}
}
