// Package contacts is the owner-scoped application service in front of the contact store.
//
// Every operation takes the acting user as resolved by the auth package and passes its id
// to the store. The owner of a contact is never taken from client input.
package contacts

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/events"
	"gitlab.com/dirk.krummacker/address-book/internal/metrics"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
)

// Store persists contacts. It is implemented by store.Contacts.
type Store interface {
	List(ctx context.Context, ownerID int64, page query.Page) ([]model.Contact, error)
	Get(ctx context.Context, id, ownerID int64) (model.Contact, error)
	Create(ctx context.Context, in model.ContactInput, ownerID int64, now time.Time) (model.Contact, error)
	Update(ctx context.Context, id int64, in model.ContactInput, ownerID int64, now time.Time) (model.Contact, error)
	Delete(ctx context.Context, id, ownerID int64) (model.Contact, error)
	Search(ctx context.Context, search query.Search, ownerID int64, page query.Page) ([]model.Contact, error)
	UpcomingBirthdays(ctx context.Context, window query.BirthdayWindow, ownerID int64, page query.Page) ([]model.Contact, error)
}

// Service implements the contact operations.
type Service struct {
	store     Store
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
	sanitizer *bluemonday.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that decides which calendar day today is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithPublisher sets where change events are sent. Events are dropped by default.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the recorder of operation outcomes.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service on top of the store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.NopPublisher{},
		metrics:   metrics.Nop{},
		logger:    slog.Default(),
		location:  time.UTC,
		now:       time.Now,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the contacts of the caller in insertion order.
func (s *Service) List(ctx context.Context, caller model.User, page query.Page) ([]model.Contact, error) {
	contacts, err := s.store.List(ctx, caller.ID, page)
	s.record("list", err)
	return contacts, err
}

// Get returns one contact of the caller.
func (s *Service) Get(ctx context.Context, caller model.User, id int64) (model.Contact, error) {
	contact, err := s.store.Get(ctx, id, caller.ID)
	s.record("get", err)
	return contact, err
}

// Search returns the contacts of the caller whose name, surname, email or phone contains
// the term, ignoring case.
func (s *Service) Search(ctx context.Context, caller model.User, term string, page query.Page) ([]model.Contact, error) {
	contacts, err := s.store.Search(ctx, query.Search{Term: term}, caller.ID, page)
	s.record("search", err)
	return contacts, err
}

// UpcomingBirthdays returns the contacts of the caller with a birthday between today and
// today plus days.
func (s *Service) UpcomingBirthdays(ctx context.Context, caller model.User, days int, page query.Page) ([]model.Contact, error) {
	window, err := query.NewBirthdayWindow(s.today(), days)
	if err != nil {
		s.record("birthdays", err)
		return nil, err
	}
	contacts, err := s.store.UpcomingBirthdays(ctx, window, caller.ID, page)
	s.record("birthdays", err)
	return contacts, err
}

// Create validates the input and stores a new contact owned by the caller.
func (s *Service) Create(ctx context.Context, caller model.User, in model.ContactInput) (model.Contact, error) {
	if err := s.prepare(&in); err != nil {
		s.record("create", err)
		return model.Contact{}, err
	}
	now := s.timestamp()
	contact, err := s.store.Create(ctx, in, caller.ID, now)
	s.record("create", err)
	if err != nil {
		return model.Contact{}, err
	}
	s.publish(ctx, events.ContactCreated, contact, now)
	return contact, nil
}

// Update replaces all editable fields of a contact of the caller.
func (s *Service) Update(ctx context.Context, caller model.User, id int64, in model.ContactInput) (model.Contact, error) {
	if err := s.prepare(&in); err != nil {
		s.record("update", err)
		return model.Contact{}, err
	}
	now := s.timestamp()
	contact, err := s.store.Update(ctx, id, in, caller.ID, now)
	s.record("update", err)
	if err != nil {
		return model.Contact{}, err
	}
	s.publish(ctx, events.ContactUpdated, contact, now)
	return contact, nil
}

// Delete removes a contact of the caller and returns it as it was before.
func (s *Service) Delete(ctx context.Context, caller model.User, id int64) (model.Contact, error) {
	contact, err := s.store.Delete(ctx, id, caller.ID)
	s.record("delete", err)
	if err != nil {
		return model.Contact{}, err
	}
	s.publish(ctx, events.ContactDeleted, contact, s.timestamp())
	return contact, nil
}

// prepare strips markup from the note and validates the input against today's date.
func (s *Service) prepare(in *model.ContactInput) error {
	if in.Note != nil {
		// The policy escapes text as well; only markup is meant to go.
		note := html.UnescapeString(s.sanitizer.Sanitize(*in.Note))
		in.Note = &note
	}
	return in.Validate(s.today())
}

// today is the current calendar date in the configured time zone.
func (s *Service) today() time.Time {
	return model.DateOf(s.now().In(s.location)).Time
}

// timestamp is the current time at the precision of a DATETIME column.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *Service) publish(ctx context.Context, eventType string, contact model.Contact, now time.Time) {
	if err := s.publisher.Publish(ctx, events.NewContactEvent(eventType, contact, now)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish contact event",
			slog.String("type", eventType),
			slog.Int64("contact_id", contact.ID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) record(operation string, err error) {
	s.metrics.RecordOperation(operation, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, apperror.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, apperror.ErrNotFound):
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}
