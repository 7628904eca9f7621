// Package events carries notifications between the panel and its host.
package events

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EventHandler is invoked for each event that matches a subscription.
type EventHandler func(event *Event)

// Repository persists published events.
type Repository interface {
	Create(ctx context.Context, event *Event) error
}

// Filter selects events. The zero Filter matches everything.
type Filter struct {
	// Types keeps only these exact types.
	Types []Type

	// Namespace keeps only types with this prefix before ":".
	Namespace string
}

func (f *Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, event.Type) {
		return false
	}
	ns := strings.TrimSpace(f.Namespace)
	return ns == "" || event.Type.Namespace() == ns
}

// Publisher publishes events and manages subscriptions.
type Publisher interface {
	// Publish delivers event to every matching subscriber before returning.
	Publish(ctx context.Context, event *Event)

	Subscribe(id string, filter Filter, handler EventHandler) error
	Unsubscribe(id string) error
	SubscriberCount() int
}

var (
	ErrInvalidSubscriptionID = errors.New("subscription ID is required")
	ErrNilHandler            = errors.New("handler cannot be nil")
	ErrSubscriptionExists    = errors.New("subscription with this ID already exists")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
)

type subscription struct {
	id      string
	filter  Filter
	handler EventHandler
}

// InMemoryPublisher delivers events in-process, in subscription order.
type InMemoryPublisher struct {
	mu   sync.RWMutex
	subs []subscription

	repo       Repository
	repoFilter Filter
	logger     zerolog.Logger
}

// PublisherOption configures an InMemoryPublisher.
type PublisherOption func(*InMemoryPublisher)

// WithRepository also stores the events that match filter. A failed write
// is logged and never blocks delivery.
func WithRepository(repo Repository, filter Filter) PublisherOption {
	return func(p *InMemoryPublisher) {
		p.repo = repo
		p.repoFilter = filter
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger zerolog.Logger) PublisherOption {
	return func(p *InMemoryPublisher) {
		p.logger = logger.With().Str("component", "events").Logger()
	}
}

func NewInMemoryPublisher(opts ...PublisherOption) *InMemoryPublisher {
	p := &InMemoryPublisher{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event *Event) {
	if event == nil {
		return
	}
	if p.repo != nil && p.repoFilter.Matches(event) {
		if err := p.repo.Create(ctx, event); err != nil {
			p.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to store event")
		}
	}

	// Handlers may subscribe, unsubscribe or publish; call them unlocked.
	p.mu.RLock()
	matched := make([]EventHandler, 0, len(p.subs))
	for _, sub := range p.subs {
		if sub.filter.Matches(event) {
			matched = append(matched, sub.handler)
		}
	}
	p.mu.RUnlock()

	for _, handler := range matched {
		handler(event)
	}
}

func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler EventHandler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexLocked(id) >= 0 {
		return ErrSubscriptionExists
	}
	p.subs = append(p.subs, subscription{id: id, filter: filter, handler: handler})
	return nil
}

func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return ErrSubscriptionNotFound
	}
	p.subs = slices.Delete(p.subs, i, i+1)
	return nil
}

func (p *InMemoryPublisher) indexLocked(id string) int {
	return slices.IndexFunc(p.subs, func(sub subscription) bool { return sub.id == id })
}

func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close drops every subscription.
func (p *InMemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = nil
}
