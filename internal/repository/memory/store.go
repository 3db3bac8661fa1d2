// Package memory provides an in-memory implementation of the repository
// interfaces used for tests and ephemeral environments.
package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time contract assertions.
var (
	_ repository.Transactor              = (*Store)(nil)
	_ repository.UserRepository          = (*userRepo)(nil)
	_ repository.ExerciseRepository      = (*exerciseRepo)(nil)
	_ repository.BlueprintRepository     = (*blueprintRepo)(nil)
	_ repository.VersionRepository       = (*versionRepo)(nil)
	_ repository.ExerciseEntryRepository = (*entryRepo)(nil)
	_ repository.AssignmentRepository    = (*assignmentRepo)(nil)
	_ repository.SessionRepository       = (*sessionRepo)(nil)
	_ repository.EventRepository         = (*eventRepo)(nil)
)

type memoryState struct {
	users       map[primitive.ObjectID]domain.User
	exercises   map[primitive.ObjectID]domain.Exercise
	blueprints  map[primitive.ObjectID]domain.Blueprint
	versions    map[primitive.ObjectID]domain.Version
	entries     map[primitive.ObjectID]domain.ExerciseEntry
	assignments map[primitive.ObjectID]domain.Assignment
	sessions    map[primitive.ObjectID]domain.MaterializedSession
	events      []domain.AssignmentEvent
}

func newMemoryState() memoryState {
	return memoryState{
		users:       make(map[primitive.ObjectID]domain.User),
		exercises:   make(map[primitive.ObjectID]domain.Exercise),
		blueprints:  make(map[primitive.ObjectID]domain.Blueprint),
		versions:    make(map[primitive.ObjectID]domain.Version),
		entries:     make(map[primitive.ObjectID]domain.ExerciseEntry),
		assignments: make(map[primitive.ObjectID]domain.Assignment),
		sessions:    make(map[primitive.ObjectID]domain.MaterializedSession),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.exercises {
		cloned.exercises[k] = v
	}
	for k, v := range s.blueprints {
		cloned.blueprints[k] = cloneBlueprint(v)
	}
	for k, v := range s.versions {
		cloned.versions[k] = cloneVersion(v)
	}
	for k, v := range s.entries {
		cloned.entries[k] = cloneEntry(v)
	}
	for k, v := range s.assignments {
		cloned.assignments[k] = cloneAssignment(v)
	}
	for k, v := range s.sessions {
		cloned.sessions[k] = cloneSession(v)
	}
	cloned.events = make([]domain.AssignmentEvent, len(s.events))
	for i, e := range s.events {
		cloned.events[i] = cloneEvent(e)
	}
	return cloned
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

// Store holds all collections behind one mutex. Repositories returned by the
// accessor methods share it, so a transaction spans every collection.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time

	// failures injected by tests, keyed by operation name
	failMu sync.Mutex
	fail   map[string]error
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		fail:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type txKey struct{}

type txState struct {
	store *Store
	state *memoryState
}

// WithinTransaction runs fn against a private copy of the state and swaps it
// in only when fn succeeds. Nested calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.store == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	txCtx := context.WithValue(ctx, txKey{}, &txState{store: s, state: &working})
	if err := fn(txCtx); err != nil {
		return err
	}
	s.state = working
	return nil
}

// FailNext makes the next call of the named operation return err.
// Operation names are "<collection>.<Method>", e.g. "sessions.CreateMany".
func (s *Store) FailNext(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.fail[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err, ok := s.fail[op]
	if !ok {
		return nil
	}
	delete(s.fail, op)
	return err
}

// read runs fn against the state visible to ctx.
func (s *Store) read(ctx context.Context, fn func(st *memoryState) error) error {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.store == s {
		return fn(tx.state)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

// write runs fn against the state visible to ctx. Outside a transaction fn
// must validate before mutating, since there is nothing to roll back.
func (s *Store) write(ctx context.Context, op string, fn func(st *memoryState) error) error {
	if err := s.injected(op); err != nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.store == s {
		return fn(tx.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

func (s *Store) now() time.Time {
	return s.nowFn()
}

// --- Repository accessors ---

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Exercises() repository.ExerciseRepository { return &exerciseRepo{s} }
func (s *Store) Blueprints() repository.BlueprintRepository { return &blueprintRepo{s} }
func (s *Store) Versions() repository.VersionRepository { return &versionRepo{s} }
func (s *Store) Entries() repository.ExerciseEntryRepository { return &entryRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository { return &assignmentRepo{s} }
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{s} }
func (s *Store) Events() repository.EventRepository { return &eventRepo{s} }

// PutUser inserts or replaces a user. Users are owned by the host platform,
// so the repository interface has no write method.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == primitive.NilObjectID {
		u.ID = primitive.NewObjectID()
	}
	s.state.users[u.ID] = cloneUser(u)
}

// --- Clone helpers ---

func cloneOID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func clonePrescription(p domain.Prescription) domain.Prescription {
	if p.TargetWeight != nil {
		w := *p.TargetWeight
		p.TargetWeight = &w
	}
	return p
}

func cloneUser(u domain.User) domain.User {
	u.ClientIDs = append([]primitive.ObjectID(nil), u.ClientIDs...)
	u.ProfessionalID = cloneOID(u.ProfessionalID)
	return u
}

func cloneBlueprint(b domain.Blueprint) domain.Blueprint {
	b.GoalID = cloneOID(b.GoalID)
	return b
}

func cloneVersion(v domain.Version) domain.Version {
	v.PublishedAt = cloneTime(v.PublishedAt)
	return v
}

func cloneEntry(e domain.ExerciseEntry) domain.ExerciseEntry {
	e.ExerciseID = cloneOID(e.ExerciseID)
	e.MuscleGroups = cloneStrings(e.MuscleGroups)
	e.Prescription = clonePrescription(e.Prescription)
	return e
}

func cloneAssignment(a domain.Assignment) domain.Assignment {
	a.StartDate = cloneTime(a.StartDate)
	a.EndDate = cloneTime(a.EndDate)
	a.AcceptedAt = cloneTime(a.AcceptedAt)
	a.RejectedAt = cloneTime(a.RejectedAt)
	if a.PendingUpdate != nil {
		pu := *a.PendingUpdate
		a.PendingUpdate = &pu
	}
	return a
}

func cloneSession(s domain.MaterializedSession) domain.MaterializedSession {
	s.SupersededAt = cloneTime(s.SupersededAt)
	exercises := make([]domain.SessionExercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		ex.ExerciseID = cloneOID(ex.ExerciseID)
		ex.MuscleGroups = cloneStrings(ex.MuscleGroups)
		ex.Prescription = clonePrescription(ex.Prescription)
		exercises[i] = ex
	}
	s.Exercises = exercises
	return s
}

func cloneEvent(e domain.AssignmentEvent) domain.AssignmentEvent {
	e.PerformedBy = cloneOID(e.PerformedBy)
	e.FromVersionID = cloneOID(e.FromVersionID)
	e.ToVersionID = cloneOID(e.ToVersionID)
	return e
}
