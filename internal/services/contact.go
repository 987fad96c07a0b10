package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contactbook/apiserver/internal/store"
	"github.com/contactbook/apiserver/types"
	"github.com/google/uuid"
)

const (
	contactNotFoundMessage   = "Contact not found"
	missingRequiredMessage   = "Name and email are required"
	updateInactiveMessage    = "This contact has been deleted and cannot be updated."
	deleteInactiveMessage    = "This contact has already been deleted."
	defaultEventPublishLimit = 5 * time.Second
)

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	ListActive(ctx context.Context, filter types.ContactFilter) ([]types.Contact, error)
	ListAll(ctx context.Context) ([]types.Contact, error)
	Get(ctx context.Context, id int64) (types.Contact, error)
	FindByEmail(ctx context.Context, email string) (types.Contact, error)
	Create(ctx context.Context, contact types.Contact) (types.Contact, error)
	Modify(ctx context.Context, id int64, mutate func(*types.Contact) error) (types.Contact, error)
}

// EventPublisher receives lifecycle events after a mutation commits.
type EventPublisher interface {
	PublishContactEvent(ctx context.Context, event types.ContactEvent) error
}

// ContactService encapsulates the contact lifecycle.
type ContactService struct {
	repo   ContactRepository
	events EventPublisher
	now    func() time.Time
	logger *slog.Logger
}

type ContactOption func(*ContactService)

// WithClock replaces the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) ContactOption {
	return func(s *ContactService) {
		s.now = now
	}
}

// WithEvents enables lifecycle event publishing.
func WithEvents(events EventPublisher) ContactOption {
	return func(s *ContactService) {
		s.events = events
	}
}

func WithLogger(logger *slog.Logger) ContactOption {
	return func(s *ContactService) {
		s.logger = logger
	}
}

func NewContactService(repo ContactRepository, opts ...ContactOption) *ContactService {
	s := &ContactService{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns active contacts in ascending id order.
func (s *ContactService) List(ctx context.Context, filter types.ContactFilter) ([]types.Contact, error) {
	contacts, err := s.repo.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// ListAll returns every contact including soft-deleted ones.
func (s *ContactService) ListAll(ctx context.Context) ([]types.Contact, error) {
	contacts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all contacts: %w", err)
	}
	return contacts, nil
}

func (s *ContactService) Get(ctx context.Context, id int64) (types.Contact, error) {
	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Contact{}, translate(err)
	}
	return contact, nil
}

// Create validates and stores a new active contact. Both name and email must be present.
func (s *ContactService) Create(ctx context.Context, patch types.ContactPatch) (types.Contact, error) {
	patch = patch.Normalize()
	if !patch.Name.Set || !patch.Email.Set {
		return types.Contact{}, Malformed(missingRequiredMessage)
	}

	contact := types.Contact{Active: true}
	patch.ApplyTo(&contact)

	if errs := ValidateContact(contact); len(errs) > 0 {
		return types.Contact{}, ValidationFailed(errs)
	}
	if err := CheckEmailAvailable(ctx, s.repo, contact.Email, 0); err != nil {
		return types.Contact{}, translate(err)
	}

	contact.CreatedAt = s.timestamp()
	contact.UpdatedAt = nil

	created, err := s.repo.Create(ctx, contact)
	if err != nil {
		return types.Contact{}, translate(err)
	}

	s.publish(ctx, types.ContactCreated, created)
	return created, nil
}

// Update merges the present patch fields into an active contact.
// An empty patch still refreshes updatedAt.
func (s *ContactService) Update(ctx context.Context, id int64, patch types.ContactPatch) (types.Contact, error) {
	patch = patch.Normalize()

	updated, err := s.repo.Modify(ctx, id, func(contact *types.Contact) error {
		if !contact.Active {
			return Forbidden(updateInactiveMessage)
		}
		if errs := ValidatePatch(patch); len(errs) > 0 {
			return ValidationFailed(errs)
		}
		if patch.Email.Set && patch.Email.Value != contact.Email {
			if err := CheckEmailAvailable(ctx, s.repo, patch.Email.Value, contact.ID); err != nil {
				return err
			}
		}

		patch.ApplyTo(contact)
		now := s.timestamp()
		contact.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return types.Contact{}, translate(err)
	}

	s.publish(ctx, types.ContactUpdated, updated)
	return updated, nil
}

// Delete soft deletes an active contact. Deleting twice is forbidden.
func (s *ContactService) Delete(ctx context.Context, id int64) (types.Contact, error) {
	deleted, err := s.repo.Modify(ctx, id, func(contact *types.Contact) error {
		if !contact.Active {
			return Forbidden(deleteInactiveMessage)
		}
		contact.Active = false
		now := s.timestamp()
		contact.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return types.Contact{}, translate(err)
	}

	s.publish(ctx, types.ContactDeleted, deleted)
	return deleted, nil
}

// timestamp truncates to the store's microsecond precision.
func (s *ContactService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *ContactService) publish(ctx context.Context, eventType string, contact types.Contact) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultEventPublishLimit)
	defer cancel()

	event := types.ContactEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: s.timestamp(),
		Contact:    contact,
	}
	if err := s.events.PublishContactEvent(ctx, event); err != nil {
		s.logger.Error("publish contact event failed",
			slog.String("event_id", event.ID),
			slog.String("type", eventType),
			slog.Int64("contact_id", contact.ID),
			slog.Any("error", err),
		)
	}
}

func translate(err error) error {
	var domainErr *Error
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, store.ErrNotFound):
		return NotFound(contactNotFoundMessage)
	case errors.Is(err, store.ErrDuplicateEmail):
		return Conflict("email", duplicateEmailMessage)
	default:
		return err
	}
}
