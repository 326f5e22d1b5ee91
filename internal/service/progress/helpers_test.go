package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/AtlasTheChosen/lockn-sub001/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-10-14 12:00 UTC.
var noon = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// recorder captures emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*events.ProgressEvent
}

func (r *recorder) HandleEvent(_ context.Context, event *events.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) ofType(t string) []*events.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.ProgressEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc *progress.Service
	mem *testutils.MemoryStore
	clk *testutils.Clock
	rec *recorder
}

func newFixture(t *testing.T, start time.Time, opts progress.Options) *fixture {
	t.Helper()
	f := &fixture{
		mem: testutils.NewMemoryStore(),
		clk: testutils.NewClock(start),
		rec: &recorder{},
	}
	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(f.rec)
	opts.Now = f.clk.Now
	opts.Emitter = emitter
	if opts.Retry == (progress.RetryPolicy{}) {
		opts.Retry = progress.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
	}
	f.svc = progress.NewService(f.mem, opts)
	return f
}

func (f *fixture) register(t *testing.T, tz string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := f.svc.RegisterUser(context.Background(), userID, tz)
	require.NoError(t, err)
	return userID
}

func (f *fixture) stack(t *testing.T, userID uuid.UUID, n int) (progress.StackStatus, []uuid.UUID) {
	t.Helper()
	items := make([]uuid.UUID, n)
	for i := range items {
		items[i] = uuid.New()
	}
	status, err := f.svc.CreateStack(context.Background(), userID, "stack", items)
	require.NoError(t, err)
	return status, items
}

func (f *fixture) rate(t *testing.T, userID, itemID uuid.UUID, rating int) progress.RatingResult {
	t.Helper()
	res, err := f.svc.SubmitRating(context.Background(), domain.RatingEvent{
		UserID: userID,
		ItemID: itemID,
		Rating: rating,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) masterAll(t *testing.T, userID uuid.UUID, items []uuid.UUID) progress.RatingResult {
	t.Helper()
	var last progress.RatingResult
	for _, id := range items {
		last = f.rate(t, userID, id, 5)
	}
	return last
}

func (f *fixture) streak(t *testing.T, userID uuid.UUID) *domain.UserStreakState {
	t.Helper()
	state, err := f.mem.Stores().Streaks.Get(context.Background(), userID)
	require.NoError(t, err)
	return state
}

func (f *fixture) check(t *testing.T, id uuid.UUID) *domain.ComprehensionCheck {
	t.Helper()
	c, err := f.mem.Stores().Checks.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

// update applies fn to a stored record in its own transaction.
func (f *fixture) update(t *testing.T, fn func(ctx context.Context, s store.Stores) error) {
	t.Helper()
	require.NoError(t, f.mem.InTx(context.Background(), fn))
}
