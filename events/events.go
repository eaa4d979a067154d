package events

import (
	"context"
	"sync"

	"contestbot/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserRegistered     EventType = "user_registered"
	EventTypeReferralCompleted  EventType = "referral_completed"
	EventTypeContestStateChange EventType = "contest_state_change"
	EventTypeResultsAnnounced   EventType = "results_announced"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserRegisteredEvent represents a new user registration
type UserRegisteredEvent struct {
	TelegramID int64
	Username   string
	FirstName  string
	ReferredBy *int64
}

func (e UserRegisteredEvent) Type() EventType {
	return EventTypeUserRegistered
}

// ReferralCompletedEvent represents a referral that passed the membership check
type ReferralCompletedEvent struct {
	ReferrerTelegramID int64
	ReferredTelegramID int64
}

func (e ReferralCompletedEvent) Type() EventType {
	return EventTypeReferralCompleted
}

// ContestStateChangeEvent represents a contest lifecycle transition
type ContestStateChangeEvent struct {
	ContestID int64
	OldStatus models.ContestStatus
	NewStatus models.ContestStatus
}

func (e ContestStateChangeEvent) Type() EventType {
	return EventTypeContestStateChange
}

// ResultsAnnouncedEvent represents the one-way results announcement flip
type ResultsAnnouncedEvent struct {
	ContestID   int64
	ContestName string
}

func (e ResultsAnnouncedEvent) Type() EventType {
	return EventTypeResultsAnnounced
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the publisher
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits pending events; called after successful DB commit. Events are
// emitted on a background context so they outlive the transaction context.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
