package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot is embedded by loads, bids, bookings and profiles.
// Version is the optimistic lock token: repositories update rows
// WHERE version = Version and bump it on success.
type BaseAggregateRoot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	domainEvents []DomainEvent
}

// NewBaseAggregateRootAt starts a fresh aggregate at version 1.
func NewBaseAggregateRootAt(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// RestoreAggregateRoot rebuilds the base of a persisted aggregate. It has no
// pending events.
func RestoreAggregateRoot(id uuid.UUID, createdAt, updatedAt time.Time, version int) BaseAggregateRoot {
	return BaseAggregateRoot{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt, Version: version}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

func (a *BaseAggregateRoot) Touch(now time.Time) { a.UpdatedAt = now }

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the pending events without clearing them.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// PullDomainEvents hands the pending events to the caller, which becomes
// responsible for publishing them after commit.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.domainEvents
	a.domainEvents = nil
	return events
}
