package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/clock"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/ledger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/lifecycle"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/srs"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/weekly"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/sethvargo/go-retry"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 10 * time.Millisecond
)

// RetryPolicy bounds how often a transaction that lost an optimistic
// concurrency race is re-run.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Options configures a Service. The zero value uses the system clock,
// default policies and discards events.
type Options struct {
	// Now is the authoritative clock. Client timestamps are never used.
	Now    clock.NowFunc
	Logger *slog.Logger
	// Emitter receives events after their transaction committed.
	Emitter events.EventEmitter
	// Streak is the ledger policy. The zero value uses ledger.DefaultPolicy.
	Streak ledger.Policy
	// Checks is the comprehension-check policy. The zero value uses
	// lifecycle.DefaultDeadlinePolicy.
	Checks    lifecycle.DeadlinePolicy
	WeeklyCap int
	SRS       srs.Service
	// Retry is the conflict retry policy. The zero value uses the defaults.
	Retry RetryPolicy
}

// Service orchestrates the progress core. Every mutation of a user's
// progress runs in one transaction that first locks the user's streak
// state; day rollover, streak loss and overdue checks are materialized
// lazily at the start of each operation.
type Service struct {
	tx      store.Transactor
	now     clock.NowFunc
	ledger  *ledger.Ledger
	stacks  *lifecycle.StackManager
	checks  *lifecycle.DeadlineManager
	weekly  *weekly.Aggregator
	srs     srs.Service
	emitter events.EventEmitter
	retry   RetryPolicy
	logger  *slog.Logger
}

// NewService creates a Service backed by tx.
func NewService(tx store.Transactor, opts Options) *Service {
	if tx == nil {
		panic("transactor cannot be nil")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = clock.SystemNow
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	scheduler := opts.SRS
	if scheduler == nil {
		scheduler = srs.NewDefaultService()
	}

	streakPolicy := opts.Streak
	if streakPolicy == (ledger.Policy{}) {
		streakPolicy = ledger.DefaultPolicy()
	}
	checkPolicy := opts.Checks
	if checkPolicy == (lifecycle.DeadlinePolicy{}) {
		checkPolicy = lifecycle.DefaultDeadlinePolicy()
	}
	retryPolicy := opts.Retry
	if retryPolicy == (RetryPolicy{}) {
		retryPolicy = RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
	}
	if retryPolicy.MaxRetries < 0 {
		retryPolicy.MaxRetries = 0
	}
	if retryPolicy.BaseDelay <= 0 {
		retryPolicy.BaseDelay = DefaultBaseDelay
	}

	deadlines := lifecycle.NewDeadlineManager(checkPolicy)
	return &Service{
		tx:      tx,
		now:     now,
		ledger:  ledger.New(streakPolicy),
		stacks:  lifecycle.NewStackManager(deadlines),
		checks:  deadlines,
		weekly:  weekly.NewAggregator(opts.WeeklyCap),
		srs:     scheduler,
		emitter: emitter,
		retry:   retryPolicy,
		logger:  log.With(slog.String("component", "progress_service")),
	}
}

// outbox collects the events of one transaction attempt. They are emitted
// only after the attempt committed.
type outbox struct {
	events []*events.ProgressEvent
}

func (o *outbox) add(log *slog.Logger, eventType string, state *domain.UserStreakState, payload interface{}, at time.Time) {
	event, err := events.NewProgressEvent(eventType, state.UserID, payload, at)
	if err != nil {
		log.Error("failed to build event",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType))
		return
	}
	o.events = append(o.events, event)
}

type txFunc func(ctx context.Context, stores store.Stores, out *outbox) error

// run executes fn in a transaction, retrying lost version races with
// exponential backoff, and emits the collected events once it committed.
// An exhausted retry budget is reported as a domain.ConflictError.
func (s *Service) run(ctx context.Context, entity string, fn txFunc) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		out      *outbox
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(s.retry.MaxRetries), retry.NewExponential(s.retry.BaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		out = &outbox{}
		err := s.tx.InTx(ctx, func(ctx context.Context, stores store.Stores) error {
			return fn(ctx, stores, out)
		})
		if err != nil && store.IsRetryable(err) {
			log.Debug("transaction lost a concurrent update, retrying",
				slog.String("entity", entity),
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if store.IsRetryable(err) {
			log.Warn("giving up after repeated conflicts",
				slog.String("entity", entity),
				slog.Int("attempts", attempts))
			return domain.NewConflictError(entity, attempts, err)
		}
		return err
	}

	s.emit(ctx, out.events)
	return nil
}

func (s *Service) emit(ctx context.Context, pending []*events.ProgressEvent) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	for _, event := range pending {
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			log.Error("failed to emit event",
				slog.String("error", err.Error()),
				slog.String("event_type", event.Type),
				slog.String("user_id", event.UserID.String()))
		}
	}
}
