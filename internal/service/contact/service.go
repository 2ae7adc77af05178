package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/contact-desk/backend/internal/metrics"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/triage"
	"github.com/zhouzirui/contact-desk/backend/internal/store"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrMissingField   = errors.New("missing required fields")
	ErrStorageFailure = errors.New("storage failure")
)

// Classifier assigns a triage category to a submission.
type Classifier interface {
	Classify(ctx context.Context, sub contact.Submission) triage.Result
}

// Publisher receives every message after it has been stored.
type Publisher interface {
	Publish(msg contact.Message)
}

// Service implements intake and retrieval on top of the storage gateway.
type Service struct {
	store      store.Store
	classifier Classifier
	publisher  Publisher
	newID      func() string
	now        func() time.Time
	logger     zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithClassifier(c Classifier) Option { return func(s *Service) { s.classifier = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides the message id generator.
func WithIDGenerator(newID func() string) Option { return func(s *Service) { s.newID = newID } }

// NewService wires the intake pipeline. ids default to ULIDs, which are
// monotonic within the process and safe for concurrent use.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		newID:  func() string { return ulid.Make().String() },
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates a raw submission body and stores it as a new Message.
func (s *Service) Submit(ctx context.Context, raw []byte) (contact.Message, error) {
	sub, err := parseSubmission(raw)
	if err != nil {
		if errors.Is(err, ErrMalformedInput) {
			metrics.Submissions.WithLabelValues("malformed").Inc()
		} else {
			metrics.Submissions.WithLabelValues("missing_field").Inc()
		}
		return contact.Message{}, err
	}

	msg := contact.Message{
		ID:        s.newID(),
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if s.classifier != nil {
		msg.Category = string(s.classifier.Classify(ctx, sub).Category)
	}

	if err := s.store.Put(ctx, msg); err != nil {
		metrics.Submissions.WithLabelValues("storage_failure").Inc()
		s.logger.Error().Err(err).Str("id", msg.ID).Msg("failed to store contact message")
		return contact.Message{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	s.logger.Info().Str("id", msg.ID).Str("category", msg.Category).Msg("contact message stored")

	if s.publisher != nil {
		s.publisher.Publish(msg)
	}
	return msg, nil
}

// List returns every stored message. Order is whatever the store yields.
func (s *Service) List(ctx context.Context) ([]contact.Message, error) {
	messages, err := s.store.ScanAll(ctx)
	if err != nil {
		metrics.Listings.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if messages == nil {
		messages = []contact.Message{}
	}
	metrics.Listings.WithLabelValues("ok").Inc()
	return messages, nil
}

func parseSubmission(raw []byte) (contact.Submission, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return contact.Submission{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	// Arrays, scalars and null parse fine but carry no fields.
	fields, _ := payload.(map[string]any)

	sub := contact.Submission{
		Name:    stringField(fields, "name"),
		Email:   stringField(fields, "email"),
		Message: stringField(fields, "message"),
	}
	if !sub.Complete() {
		return contact.Submission{}, ErrMissingField
	}
	return sub, nil
}

// stringField returns fields[key] when it is a string; other JSON types count as absent.
func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}
