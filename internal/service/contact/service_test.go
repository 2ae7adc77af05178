package contact_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/contact-desk/backend/internal/model/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/feed"
	"github.com/zhouzirui/contact-desk/backend/internal/service/triage"
	"github.com/zhouzirui/contact-desk/backend/internal/store"
)

// countingStore records Put calls and can be told to fail.
type countingStore struct {
	store.Store
	mu      sync.Mutex
	puts    int
	putErr  error
	scanErr error
}

func newCountingStore() *countingStore {
	return &countingStore{Store: store.NewMemoryStore()}
}

func (s *countingStore) Put(ctx context.Context, msg model.Message) error {
	s.mu.Lock()
	s.puts++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, msg)
}

func (s *countingStore) ScanAll(ctx context.Context) ([]model.Message, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.Store.ScanAll(ctx)
}

func (s *countingStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func TestSubmitStoresMessageWithServerFields(t *testing.T) {
	st := newCountingStore()
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	svc := contact.NewService(st, contact.WithClock(func() time.Time { return fixed }))

	msg, err := svc.Submit(context.Background(), []byte(`{"name":"Ada","email":"a@example.com","message":"hi"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Ada", msg.Name)
	assert.Equal(t, "a@example.com", msg.Email)
	assert.Equal(t, "hi", msg.Message)
	assert.True(t, msg.CreatedAt.Equal(fixed))
	assert.Equal(t, time.UTC, msg.CreatedAt.Location())
	assert.Equal(t, 1, st.putCount())

	stored, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg, stored[0])
}

func TestSubmitTruncatesCreatedAtToMicroseconds(t *testing.T) {
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 123456789, time.UTC)
	svc := contact.NewService(newCountingStore(), contact.WithClock(func() time.Time { return fixed }))

	msg, err := svc.Submit(context.Background(), []byte(`{"name":"Ada","email":"a@example.com","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, 123456000, msg.CreatedAt.Nanosecond())
}

func TestSubmitIgnoresClientSuppliedIdentity(t *testing.T) {
	st := newCountingStore()
	svc := contact.NewService(st, contact.WithIDGenerator(func() string { return "server-id" }))

	msg, err := svc.Submit(context.Background(),
		[]byte(`{"id":"client-id","createdAt":"1999-01-01T00:00:00Z","name":"Ada","email":"a@example.com","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "server-id", msg.ID)
	assert.True(t, msg.CreatedAt.After(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"empty name":    `{"name":"","email":"a@example.com","message":"hi"}`,
		"missing email": `{"name":"Ada","message":"hi"}`,
		"missing all":   `{}`,
		"non-string":    `{"name":42,"email":"a@example.com","message":"hi"}`,
		"null body":     `null`,
		"array body":    `[]`,
		"number body":   `42`,
		"string body":   `"hi"`,
		"bool body":     `true`,
		"empty message": `{"name":"Ada","email":"a@example.com","message":""}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			st := newCountingStore()
			svc := contact.NewService(st)

			_, err := svc.Submit(context.Background(), []byte(body))
			assert.ErrorIs(t, err, contact.ErrMissingField)
			assert.Equal(t, 0, st.putCount())
		})
	}
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	for _, body := range []string{``, `{`, `name=Ada`, `["Ada"`} {
		st := newCountingStore()
		svc := contact.NewService(st)

		_, err := svc.Submit(context.Background(), []byte(body))
		assert.ErrorIs(t, err, contact.ErrMalformedInput, "body %q", body)
		assert.Equal(t, 0, st.putCount())
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	st := newCountingStore()
	st.putErr = errors.New("disk full")
	svc := contact.NewService(st)

	_, err := svc.Submit(context.Background(), []byte(`{"name":"Ada","email":"a@example.com","message":"hi"}`))
	assert.ErrorIs(t, err, contact.ErrStorageFailure)
	assert.Equal(t, 1, st.putCount())
}

func TestSubmitDuplicateIDIsNotOverwritten(t *testing.T) {
	st := newCountingStore()
	svc := contact.NewService(st, contact.WithIDGenerator(func() string { return "same" }))
	body := []byte(`{"name":"Ada","email":"a@example.com","message":"first"}`)

	_, err := svc.Submit(context.Background(), body)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), []byte(`{"name":"Eve","email":"e@example.com","message":"second"}`))
	assert.ErrorIs(t, err, contact.ErrStorageFailure)
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	stored, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "first", stored[0].Message)
}

func TestConcurrentSubmissionsDoNotCollide(t *testing.T) {
	st := newCountingStore()
	svc := contact.NewService(st)
	const n = 64

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"name":"user%d","email":"u%d@example.com","message":"hello"}`, i, i)
			if _, err := svc.Submit(context.Background(), []byte(body)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("submit failed: %v", err)
	}

	stored, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, n)

	ids := make(map[string]struct{}, n)
	for _, msg := range stored {
		ids[msg.ID] = struct{}{}
	}
	assert.Len(t, ids, n)
}

func TestListReturnsExactlyWhatWasWritten(t *testing.T) {
	st := newCountingStore()
	svc := contact.NewService(st)

	var written []model.Message
	for i := 0; i < 5; i++ {
		msg, err := svc.Submit(context.Background(), []byte(fmt.Sprintf(`{"name":"n%d","email":"e%d@example.com","message":"m%d"}`, i, i, i)))
		require.NoError(t, err)
		written = append(written, msg)
	}

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, written, listed)
}

func TestListEmptyIsNonNil(t *testing.T) {
	svc := contact.NewService(newCountingStore())

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestListStorageFailure(t *testing.T) {
	st := newCountingStore()
	st.scanErr = errors.New("table unavailable")
	svc := contact.NewService(st)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, contact.ErrStorageFailure)
	assert.Contains(t, err.Error(), "table unavailable")
}

type fixedClassifier string

func (c fixedClassifier) Classify(context.Context, model.Submission) triage.Result {
	return triage.Result{Category: "sales", Source: string(c)}
}

func TestSubmitAppliesCategoryAndPublishes(t *testing.T) {
	hub := feed.NewHub()
	live, cancel := hub.Subscribe(1)
	defer cancel()

	svc := contact.NewService(newCountingStore(),
		contact.WithClassifier(fixedClassifier("test")),
		contact.WithPublisher(hub))

	msg, err := svc.Submit(context.Background(), []byte(`{"name":"Ada","email":"a@example.com","message":"quote please"}`))
	require.NoError(t, err)
	assert.Equal(t, "sales", msg.Category)

	published := <-live
	assert.Equal(t, msg, published)
}
