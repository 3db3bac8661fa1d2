package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository/memory"
	"alcyxob/coaching-programmes/internal/sessions"
	"alcyxob/coaching-programmes/internal/storage"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fixture wires every service over one in-memory store.
type fixture struct {
	t   *testing.T
	ctx context.Context

	store   *memory.Store
	archive *storage.MemoryStore

	exercises    ExerciseService
	programmes   ProgrammeService
	sets         ExerciseSetService
	materializer SessionMaterializer
	assignments  AssignmentService
	negotiation  NegotiationService
	sweeper      Sweeper

	pro      domain.User
	client   domain.User
	otherPro domain.User
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	sweep       SweeperConfig
	sweepOnRead bool
	goals       GoalLookup
}

func withSweepConfig(cfg SweeperConfig) fixtureOption {
	return func(c *fixtureConfig) { c.sweep = cfg }
}

func withSweepOnRead() fixtureOption {
	return func(c *fixtureConfig) { c.sweepOnRead = true }
}

func withGoals(g GoalLookup) fixtureOption {
	return func(c *fixtureConfig) { c.goals = g }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	log := logger.NewNop()
	store := memory.NewStore()
	archive := storage.NewMemoryStore()

	exercises := NewExerciseService(store.Exercises())
	deriver := sessions.NewDeriver()
	recorder := NewEventRecorder(store.Events(), log)
	materializer := NewSessionMaterializer(store.Entries(), store.Sessions(), exercises, deriver)
	sweeper := NewSweeper(store.Assignments(), store.Events(), recorder, archive, cfg.sweep, log)

	f := &fixture{
		t:            t,
		ctx:          context.Background(),
		store:        store,
		archive:      archive,
		exercises:    exercises,
		programmes:   NewProgrammeService(store, store.Blueprints(), store.Versions(), store.Entries(), log),
		sets:         NewExerciseSetService(store, store.Blueprints(), store.Versions(), store.Entries(), exercises, deriver, log),
		materializer: materializer,
		negotiation:  NewNegotiationService(store, store.Assignments(), store.Versions(), materializer, recorder, log),
		sweeper:      sweeper,
	}
	f.assignments = NewAssignmentService(AssignmentDeps{
		Tx:            store,
		Assignments:   store.Assignments(),
		Versions:      store.Versions(),
		Blueprints:    store.Blueprints(),
		Events:        store.Events(),
		Relationships: NewUserRelationshipVerifier(store.Users()),
		Goals:         cfg.goals,
		Materializer:  materializer,
		Recorder:      recorder,
		Sweeper:       sweeper,
		SweepOnRead:   cfg.sweepOnRead,
		Log:           log,
	})

	f.pro = domain.User{ID: primitive.NewObjectID(), Name: "Coach", Role: domain.RoleProfessional}
	f.otherPro = domain.User{ID: primitive.NewObjectID(), Name: "Other Coach", Role: domain.RoleProfessional}
	f.client = domain.User{ID: primitive.NewObjectID(), Name: "Client", Role: domain.RoleClient, ProfessionalID: &f.pro.ID}
	f.pro.ClientIDs = []primitive.ObjectID{f.client.ID}
	store.PutUser(f.pro)
	store.PutUser(f.otherPro)
	store.PutUser(f.client)
	return f
}

func openEntry(name string, day int, tags ...string) EntryInput {
	return EntryInput{
		DayNumber:    day,
		CustomName:   name,
		MuscleGroups: tags,
		Prescription: domain.Prescription{Sets: 3, Reps: "8-12", RestSeconds: 90, LoadDirective: domain.LoadOpen},
	}
}

// dayOne returns n custom push exercises on day 1.
func dayOne(n int) []EntryInput {
	names := []string{"Bench Press", "Incline Press", "Dips", "Cable Fly", "Push-Up"}
	out := make([]EntryInput, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, openEntry(names[i%len(names)], 1, "chest"))
	}
	return out
}

func (f *fixture) blueprint(name string) *domain.Blueprint {
	f.t.Helper()
	b, err := f.programmes.CreateBlueprint(f.ctx, f.pro.ID, BlueprintInput{Name: name})
	require.NoError(f.t, err)
	return b
}

// draft creates a new draft version of the blueprint holding entries.
func (f *fixture) draft(blueprintID primitive.ObjectID, entries []EntryInput) *domain.Version {
	f.t.Helper()
	v, err := f.programmes.CreateVersion(f.ctx, f.pro.ID, blueprintID, "")
	require.NoError(f.t, err)
	if len(entries) > 0 {
		_, err = f.sets.SetVersionExercises(f.ctx, f.pro.ID, v.ID, entries)
		require.NoError(f.t, err)
	}
	return v
}

// active creates and activates a version holding entries.
func (f *fixture) active(blueprintID primitive.ObjectID, entries []EntryInput) *domain.Version {
	f.t.Helper()
	v := f.draft(blueprintID, entries)
	v, err := f.programmes.ActivateVersion(f.ctx, f.pro.ID, v.ID)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) offer(versionID primitive.ObjectID) *domain.Assignment {
	f.t.Helper()
	a, err := f.assignments.Create(f.ctx, f.pro.ID, f.client.ID, versionID, domain.AssignmentDates{}, "")
	require.NoError(f.t, err)
	return a
}

func (f *fixture) accepted(versionID primitive.ObjectID) *domain.Assignment {
	f.t.Helper()
	a := f.offer(versionID)
	a, err := f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) reload(id primitive.ObjectID) *domain.Assignment {
	f.t.Helper()
	a, err := f.store.Assignments().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) current(assignmentID primitive.ObjectID) []domain.MaterializedSession {
	f.t.Helper()
	s, err := f.materializer.Current(f.ctx, assignmentID)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) events(assignmentID primitive.ObjectID, eventType domain.EventType) []domain.AssignmentEvent {
	f.t.Helper()
	all, err := f.store.Events().GetByAssignmentID(f.ctx, assignmentID)
	require.NoError(f.t, err)
	var out []domain.AssignmentEvent
	for _, e := range all {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) versions(blueprintID primitive.ObjectID) []domain.Version {
	f.t.Helper()
	vs, err := f.store.Versions().GetByBlueprintID(f.ctx, blueprintID)
	require.NoError(f.t, err)
	return vs
}

func activeCount(vs []domain.Version) int {
	n := 0
	for _, v := range vs {
		if v.IsActive() {
			n++
		}
	}
	return n
}
