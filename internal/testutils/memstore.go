package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory store.Transactor. Each transaction works on a
// private copy of the data that replaces the shared copy on commit, and
// transactions run one at a time, which mirrors the row locks the
// PostgreSQL implementation takes.
type MemoryStore struct {
	txMu sync.Mutex
	db   *memDB

	faultMu     sync.Mutex
	failCommits int
	txCalls     int
	commits     int
}

type memDB struct {
	mu       sync.RWMutex
	streaks  map[uuid.UUID]*domain.UserStreakState
	items    map[uuid.UUID]*domain.ItemMasteryRecord
	stacks   map[uuid.UUID]*domain.Stack
	checks   map[uuid.UUID]*domain.ComprehensionCheck
	checkSeq map[uuid.UUID]int64
	seq      int64
}

func newMemDB() *memDB {
	return &memDB{
		streaks:  make(map[uuid.UUID]*domain.UserStreakState),
		items:    make(map[uuid.UUID]*domain.ItemMasteryRecord),
		stacks:   make(map[uuid.UUID]*domain.Stack),
		checks:   make(map[uuid.UUID]*domain.ComprehensionCheck),
		checkSeq: make(map[uuid.UUID]int64),
	}
}

func (d *memDB) clone() *memDB {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c := newMemDB()
	for k, v := range d.streaks {
		c.streaks[k] = v.Clone()
	}
	for k, v := range d.items {
		c.items[k] = v.Clone()
	}
	for k, v := range d.stacks {
		c.stacks[k] = v.Clone()
	}
	for k, v := range d.checks {
		c.checks[k] = v.Clone()
	}
	for k, v := range d.checkSeq {
		c.checkSeq[k] = v
	}
	c.seq = d.seq
	return c
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: newMemDB()}
}

// Ensure MemoryStore implements store.Transactor interface
var _ store.Transactor = (*MemoryStore)(nil)

// InTx implements store.Transactor.InTx.
func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.faultMu.Lock()
	m.txCalls++
	m.faultMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.db.clone()
	if err := fn(ctx, bindStores(work)); err != nil {
		return err
	}

	m.faultMu.Lock()
	if m.failCommits > 0 {
		m.failCommits--
		m.faultMu.Unlock()
		return fmt.Errorf("%w: injected commit failure", store.ErrVersionConflict)
	}
	m.commits++
	m.faultMu.Unlock()

	m.db.mu.Lock()
	m.db.streaks, m.db.items, m.db.stacks, m.db.checks = work.streaks, work.items, work.stacks, work.checks
	m.db.checkSeq, m.db.seq = work.checkSeq, work.seq
	m.db.mu.Unlock()
	return nil
}

// Stores implements store.Transactor.Stores.
func (m *MemoryStore) Stores() store.Stores {
	return bindStores(m.db)
}

// FailNextCommits makes the next n transactions fail at commit with
// store.ErrVersionConflict, discarding their writes.
func (m *MemoryStore) FailNextCommits(n int) {
	m.faultMu.Lock()
	defer m.faultMu.Unlock()
	m.failCommits = n
}

// TxCalls returns how many transactions were started.
func (m *MemoryStore) TxCalls() int {
	m.faultMu.Lock()
	defer m.faultMu.Unlock()
	return m.txCalls
}

// Commits returns how many transactions committed.
func (m *MemoryStore) Commits() int {
	m.faultMu.Lock()
	defer m.faultMu.Unlock()
	return m.commits
}

func bindStores(db *memDB) store.Stores {
	return store.Stores{
		Streaks: &memStreakStore{db: db},
		Items:   &memItemStore{db: db},
		Stacks:  &memStackStore{db: db},
		Checks:  &memCheckStore{db: db},
	}
}

type memStreakStore struct{ db *memDB }

func (s *memStreakStore) Create(_ context.Context, state *domain.UserStreakState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.streaks[state.UserID]; ok {
		return store.ErrUserExists
	}
	s.db.streaks[state.UserID] = state.Clone()
	return nil
}

func (s *memStreakStore) Get(_ context.Context, userID uuid.UUID) (*domain.UserStreakState, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	state, ok := s.db.streaks[userID]
	if !ok {
		return nil, store.ErrStreakStateNotFound
	}
	return state.Clone(), nil
}

func (s *memStreakStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserStreakState, error) {
	return s.Get(ctx, userID)
}

func (s *memStreakStore) Update(_ context.Context, state *domain.UserStreakState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.streaks[state.UserID]
	if !ok {
		return store.ErrStreakStateNotFound
	}
	if cur.Version != state.Version {
		return store.ErrVersionConflict
	}
	state.Version++
	s.db.streaks[state.UserID] = state.Clone()
	return nil
}

func (s *memStreakStore) WithTx(*sql.Tx) store.StreakStateStore { return s }

type memItemStore struct{ db *memDB }

func (s *memItemStore) CreateMultiple(_ context.Context, records []*domain.ItemMasteryRecord) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, rec := range records {
		if _, ok := s.db.items[rec.ItemID]; ok {
			return fmt.Errorf("%w: item %s", store.ErrDuplicate, rec.ItemID)
		}
		if _, ok := s.db.streaks[rec.UserID]; !ok {
			return fmt.Errorf("%w: unknown user %s", store.ErrInvalidEntity, rec.UserID)
		}
	}
	for _, rec := range records {
		s.db.items[rec.ItemID] = rec.Clone()
	}
	return nil
}

func (s *memItemStore) Get(_ context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	rec, ok := s.db.items[itemID]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return rec.Clone(), nil
}

func (s *memItemStore) GetForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error) {
	return s.Get(ctx, itemID)
}

func (s *memItemStore) Update(_ context.Context, rec *domain.ItemMasteryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.items[rec.ItemID]
	if !ok {
		return store.ErrItemNotFound
	}
	if cur.Version != rec.Version {
		return store.ErrVersionConflict
	}
	rec.Version++
	s.db.items[rec.ItemID] = rec.Clone()
	return nil
}

func (s *memItemStore) WithTx(*sql.Tx) store.ItemMasteryStore { return s }

type memStackStore struct{ db *memDB }

func (s *memStackStore) Create(_ context.Context, stack *domain.Stack) error {
	if err := stack.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.stacks[stack.ID]; ok {
		return fmt.Errorf("%w: stack %s", store.ErrDuplicate, stack.ID)
	}
	if _, ok := s.db.streaks[stack.UserID]; !ok {
		return fmt.Errorf("%w: unknown user %s", store.ErrInvalidEntity, stack.UserID)
	}
	s.db.stacks[stack.ID] = stack.Clone()
	return nil
}

func (s *memStackStore) Get(_ context.Context, id uuid.UUID) (*domain.Stack, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	stack, ok := s.db.stacks[id]
	if !ok {
		return nil, store.ErrStackNotFound
	}
	return stack.Clone(), nil
}

func (s *memStackStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Stack, error) {
	return s.Get(ctx, id)
}

func (s *memStackStore) ListOverdue(_ context.Context, userID uuid.UUID, before time.Time) ([]*domain.Stack, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []*domain.Stack
	for _, stack := range s.db.stacks {
		if stack.UserID == userID && stack.Status == domain.StackStatusPendingTest && stack.TestDeadline.Before(before) {
			out = append(out, stack.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Stack) int {
		if c := a.TestDeadline.Compare(b.TestDeadline); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (s *memStackStore) Update(_ context.Context, stack *domain.Stack) error {
	if err := stack.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.stacks[stack.ID]
	if !ok {
		return store.ErrStackNotFound
	}
	if cur.Version != stack.Version {
		return store.ErrVersionConflict
	}
	stack.Version++
	s.db.stacks[stack.ID] = stack.Clone()
	return nil
}

func (s *memStackStore) WithTx(*sql.Tx) store.StackStore { return s }

type memCheckStore struct{ db *memDB }

func (s *memCheckStore) Create(_ context.Context, check *domain.ComprehensionCheck) error {
	if err := check.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.checks[check.ID]; ok {
		return fmt.Errorf("%w: check %s", store.ErrDuplicate, check.ID)
	}
	if _, ok := s.db.stacks[check.StackID]; !ok {
		return fmt.Errorf("%w: unknown stack %s", store.ErrInvalidEntity, check.StackID)
	}
	s.db.seq++
	s.db.checkSeq[check.ID] = s.db.seq
	s.db.checks[check.ID] = check.Clone()
	return nil
}

func (s *memCheckStore) Get(_ context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	check, ok := s.db.checks[id]
	if !ok {
		return nil, store.ErrCheckNotFound
	}
	return check.Clone(), nil
}

func (s *memCheckStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error) {
	return s.Get(ctx, id)
}

func (s *memCheckStore) LatestForStack(_ context.Context, stackID uuid.UUID) (*domain.ComprehensionCheck, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var (
		latest *domain.ComprehensionCheck
		seq    int64
	)
	for id, check := range s.db.checks {
		if check.StackID == stackID && s.db.checkSeq[id] > seq {
			latest, seq = check, s.db.checkSeq[id]
		}
	}
	if latest == nil {
		return nil, store.ErrCheckNotFound
	}
	return latest.Clone(), nil
}

func (s *memCheckStore) ListUnresolvedByUser(_ context.Context, userID uuid.UUID) ([]*domain.ComprehensionCheck, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []*domain.ComprehensionCheck
	for _, check := range s.db.checks {
		if check.UserID == userID && check.IsUnresolved() {
			out = append(out, check.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.ComprehensionCheck) int {
		return int(s.db.checkSeq[a.ID] - s.db.checkSeq[b.ID])
	})
	return out, nil
}

func (s *memCheckStore) Update(_ context.Context, check *domain.ComprehensionCheck) error {
	if err := check.Validate(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.checks[check.ID]
	if !ok {
		return store.ErrCheckNotFound
	}
	if cur.Version != check.Version {
		return store.ErrVersionConflict
	}
	check.Version++
	s.db.checks[check.ID] = check.Clone()
	return nil
}

func (s *memCheckStore) WithTx(*sql.Tx) store.CheckStore { return s }
