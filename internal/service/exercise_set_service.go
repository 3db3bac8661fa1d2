package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"alcyxob/coaching-programmes/internal/sessions"
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrDayOutOfRange   = newError(KindValidation, "day number must be at least 1")
	ErrUnknownExercise = newError(KindValidation, "referenced exercise does not exist in the library")
	ErrReorderMismatch = newError(KindValidation, "entry ids must list every entry of the day exactly once")

	// Assignments hold one current session per day of their version.
	ErrActiveDaysChanged = newError(KindInvalidTransition, "training days of an active version cannot change; copy it into a new version")
)

// EntryInput is one exercise slot supplied by the author.
type EntryInput struct {
	DayNumber int `json:"dayNumber"`
	// OrderInDay is an insertion position for single-entry edits (0 appends).
	// Bulk replacement uses the order of the input instead.
	OrderInDay   int                 `json:"orderInDay,omitempty"`
	ExerciseID   *primitive.ObjectID `json:"exerciseId,omitempty"`
	CustomName   string              `json:"customName,omitempty"`
	MuscleGroups []string            `json:"muscleGroups,omitempty"`
	Notes        string              `json:"notes,omitempty"`

	domain.Prescription
}

// --- Service Interface ---
type ExerciseSetService interface {
	SetVersionExercises(ctx context.Context, proID, versionID primitive.ObjectID, inputs []EntryInput) ([]domain.ExerciseEntry, error)
	AddEntry(ctx context.Context, proID, versionID primitive.ObjectID, input EntryInput) (*domain.ExerciseEntry, error)
	UpdateEntry(ctx context.Context, proID, entryID primitive.ObjectID, input EntryInput) (*domain.ExerciseEntry, error)
	DeleteEntry(ctx context.Context, proID, entryID primitive.ObjectID) error
	ReorderDay(ctx context.Context, proID, versionID primitive.ObjectID, dayNumber int, entryIDs []primitive.ObjectID) ([]domain.ExerciseEntry, error)

	ListEntries(ctx context.Context, actorID, versionID primitive.ObjectID) ([]domain.ExerciseEntry, error)
	PreviewSessions(ctx context.Context, actorID, versionID primitive.ObjectID) ([]sessions.Session, error)
}

// --- Service Implementation ---

type exerciseSetService struct {
	tx            repository.Transactor
	blueprintRepo repository.BlueprintRepository
	versionRepo   repository.VersionRepository
	entryRepo     repository.ExerciseEntryRepository
	catalog       ExerciseCatalog
	deriver       sessions.Deriver
	log           *logger.Logger
}

// NewExerciseSetService creates the service owning a version's exercise entries.
func NewExerciseSetService(
	tx repository.Transactor,
	blueprintRepo repository.BlueprintRepository,
	versionRepo repository.VersionRepository,
	entryRepo repository.ExerciseEntryRepository,
	catalog ExerciseCatalog,
	deriver sessions.Deriver,
	log *logger.Logger,
) ExerciseSetService {
	return &exerciseSetService{
		tx:            tx,
		blueprintRepo: blueprintRepo,
		versionRepo:   versionRepo,
		entryRepo:     entryRepo,
		catalog:       catalog,
		deriver:       deriver,
		log:           log,
	}
}

// SetVersionExercises replaces the whole entry set. Within each day the input
// order becomes the order in day.
func (s *exerciseSetService) SetVersionExercises(ctx context.Context, proID, versionID primitive.ObjectID, inputs []EntryInput) ([]domain.ExerciseEntry, error) {
	// 1. Authorize
	if _, err := s.editableVersion(ctx, proID, versionID); err != nil {
		return nil, err
	}

	// 2. Validate every entry before touching storage
	entries := make([]domain.ExerciseEntry, 0, len(inputs))
	for i := range inputs {
		entry, err := buildEntry(versionID, inputs[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	if err := s.checkLibraryRefs(ctx, entries); err != nil {
		return nil, err
	}

	// 3. Delete-all then insert, atomically
	replace := func(p *dayPlan) error {
		*p = *newDayPlan(entries)
		return nil
	}
	if err := s.rewrite(ctx, versionID, replace); err != nil {
		return nil, err
	}
	s.log.Info("Version exercises replaced", "versionId", versionID.Hex(), "entries", len(entries))
	return s.entryRepo.GetByVersionID(ctx, versionID)
}

func (s *exerciseSetService) AddEntry(ctx context.Context, proID, versionID primitive.ObjectID, input EntryInput) (*domain.ExerciseEntry, error) {
	if _, err := s.editableVersion(ctx, proID, versionID); err != nil {
		return nil, err
	}
	entry, err := buildEntry(versionID, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkLibraryRefs(ctx, []domain.ExerciseEntry{entry}); err != nil {
		return nil, err
	}
	entry.ID = primitive.NewObjectID()

	insert := func(p *dayPlan) error {
		p.insert(entry, input.OrderInDay)
		return nil
	}
	if err := s.rewrite(ctx, versionID, insert); err != nil {
		return nil, err
	}
	return s.entryRepo.GetByID(ctx, entry.ID)
}

// UpdateEntry replaces an entry's content. A changed day number moves the entry
// to the new day; OrderInDay, when set, repositions it.
func (s *exerciseSetService) UpdateEntry(ctx context.Context, proID, entryID primitive.ObjectID, input EntryInput) (*domain.ExerciseEntry, error) {
	existing, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, mapRepoErr(err, ErrEntryNotFound)
	}
	if _, err := s.editableVersion(ctx, proID, existing.VersionID); err != nil {
		return nil, err
	}

	updated, err := buildEntry(existing.VersionID, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkLibraryRefs(ctx, []domain.ExerciseEntry{updated}); err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	move := func(p *dayPlan) error {
		// Day and position as stored now, not as first read.
		stored, ok := p.lookup(entryID)
		if !ok {
			return ErrEntryNotFound
		}
		oldPos := p.remove(entryID)
		pos := input.OrderInDay
		if pos == 0 && updated.DayNumber == stored.DayNumber {
			pos = oldPos
		}
		p.insert(updated, pos)
		return nil
	}
	if err := s.rewrite(ctx, existing.VersionID, move); err != nil {
		return nil, err
	}
	return s.entryRepo.GetByID(ctx, entryID)
}

// DeleteEntry removes an entry and closes the gap in its day.
func (s *exerciseSetService) DeleteEntry(ctx context.Context, proID, entryID primitive.ObjectID) error {
	existing, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return mapRepoErr(err, ErrEntryNotFound)
	}
	if _, err := s.editableVersion(ctx, proID, existing.VersionID); err != nil {
		return err
	}

	return s.rewrite(ctx, existing.VersionID, func(p *dayPlan) error {
		if p.remove(entryID) == 0 {
			return ErrEntryNotFound
		}
		return nil
	})
}

// ReorderDay sets the order of one day to the given permutation of its entries.
func (s *exerciseSetService) ReorderDay(ctx context.Context, proID, versionID primitive.ObjectID, dayNumber int, entryIDs []primitive.ObjectID) ([]domain.ExerciseEntry, error) {
	if _, err := s.editableVersion(ctx, proID, versionID); err != nil {
		return nil, err
	}
	reorder := func(p *dayPlan) error {
		return p.reorder(dayNumber, entryIDs)
	}
	if err := s.rewrite(ctx, versionID, reorder); err != nil {
		return nil, err
	}
	return s.entryRepo.GetByVersionID(ctx, versionID)
}

func (s *exerciseSetService) ListEntries(ctx context.Context, actorID, versionID primitive.ObjectID) ([]domain.ExerciseEntry, error) {
	if _, err := s.readableVersion(ctx, actorID, versionID); err != nil {
		return nil, err
	}
	return s.entryRepo.GetByVersionID(ctx, versionID)
}

// PreviewSessions derives the sessions a client would get from this version.
func (s *exerciseSetService) PreviewSessions(ctx context.Context, actorID, versionID primitive.ObjectID) ([]sessions.Session, error) {
	entries, err := s.ListEntries(ctx, actorID, versionID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.Lookup(ctx, libraryIDs(entries))
	if err != nil {
		return nil, err
	}
	return s.deriver.Derive(versionID, entries, catalog), nil
}

// --- Helpers ---

// rewrite loads the version's entries, applies edit and stores the result as
// the complete entry set, all in one transaction. Active versions keep their
// set of training days.
func (s *exerciseSetService) rewrite(ctx context.Context, versionID primitive.ObjectID, edit func(p *dayPlan) error) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// The version may have been archived since it was checked.
		version, err := s.versionRepo.GetByID(ctx, versionID)
		if err != nil {
			return mapRepoErr(err, ErrVersionNotFound)
		}
		if !version.Editable() {
			return ErrVersionArchived
		}

		current, err := s.entryRepo.GetByVersionID(ctx, versionID)
		if err != nil {
			return err
		}
		plan := newDayPlan(current)
		before := plan.dayNumbers()
		if err := edit(plan); err != nil {
			return err
		}
		if plan.dayCount() > domain.MaxTrainingDays {
			return ErrTooManyDays
		}
		if version.IsActive() && !sameDays(before, plan.dayNumbers()) {
			return ErrActiveDaysChanged
		}

		if _, err := s.entryRepo.DeleteByVersionID(ctx, versionID); err != nil {
			return err
		}
		return s.entryRepo.CreateMany(ctx, plan.flatten())
	})
}

func (s *exerciseSetService) editableVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error) {
	version, blueprint, err := s.versionWithBlueprint(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if blueprint.OwnerID != proID {
		return nil, ErrBlueprintAccessDenied
	}
	if !version.Editable() {
		return nil, ErrVersionArchived
	}
	return version, nil
}

func (s *exerciseSetService) readableVersion(ctx context.Context, actorID, versionID primitive.ObjectID) (*domain.Version, error) {
	version, blueprint, err := s.versionWithBlueprint(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !canRead(blueprint, actorID) {
		return nil, ErrBlueprintAccessDenied
	}
	return version, nil
}

func (s *exerciseSetService) versionWithBlueprint(ctx context.Context, versionID primitive.ObjectID) (*domain.Version, *domain.Blueprint, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, nil, mapRepoErr(err, ErrVersionNotFound)
	}
	blueprint, err := s.blueprintRepo.GetByID(ctx, version.BlueprintID)
	if err != nil {
		return nil, nil, mapRepoErr(err, ErrBlueprintNotFound)
	}
	return version, blueprint, nil
}

// checkLibraryRefs rejects entries pointing at exercises the library does not know.
func (s *exerciseSetService) checkLibraryRefs(ctx context.Context, entries []domain.ExerciseEntry) error {
	ids := libraryIDs(entries)
	if len(ids) == 0 {
		return nil
	}
	catalog, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return ErrUnknownExercise
		}
	}
	return nil
}

// buildEntry validates input and turns it into an unsaved entry.
func buildEntry(versionID primitive.ObjectID, in EntryInput) (domain.ExerciseEntry, error) {
	if in.DayNumber < 1 {
		return domain.ExerciseEntry{}, ErrDayOutOfRange
	}
	if in.DayNumber > domain.MaxTrainingDays {
		return domain.ExerciseEntry{}, ErrTooManyDays
	}
	name := strings.TrimSpace(in.CustomName)
	if in.ExerciseID == nil && name == "" {
		return domain.ExerciseEntry{}, Validation("either exerciseId or customName is required")
	}

	p := in.Prescription
	p.Reps = strings.TrimSpace(p.Reps)
	p.Tempo = strings.TrimSpace(p.Tempo)
	if p.LoadDirective == "" {
		p.LoadDirective = domain.LoadOpen
	}
	if err := validatePrescription(p); err != nil {
		return domain.ExerciseEntry{}, err
	}

	var tags []string
	for _, t := range in.MuscleGroups {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return domain.ExerciseEntry{
		VersionID:    versionID,
		DayNumber:    in.DayNumber,
		ExerciseID:   in.ExerciseID,
		CustomName:   name,
		MuscleGroups: tags,
		Notes:        in.Notes,
		Prescription: p,
	}, nil
}

func validatePrescription(p domain.Prescription) error {
	switch {
	case p.Sets < 1:
		return Validation("sets must be at least 1")
	case p.Reps == "":
		return Validation("reps are required")
	case p.RestSeconds < 0:
		return Validation("rest seconds cannot be negative")
	case !p.LoadDirective.Valid():
		return Validation(fmt.Sprintf("unknown load directive %q", p.LoadDirective))
	case p.LoadDirective == domain.LoadAbsolute && p.TargetWeight == nil:
		return Validation("absolute load requires a target weight")
	case p.LoadDirective == domain.LoadBodyweight && p.TargetWeight != nil:
		return Validation("bodyweight load cannot carry a target weight")
	case p.TargetWeight != nil && *p.TargetWeight <= 0:
		return Validation("target weight must be positive")
	}
	return nil
}

// dayPlan is the ordered entry list of every day of a version while it is edited.
type dayPlan struct {
	days map[int][]domain.ExerciseEntry
}

// newDayPlan keeps the relative order of entries within each day.
func newDayPlan(entries []domain.ExerciseEntry) *dayPlan {
	p := &dayPlan{days: make(map[int][]domain.ExerciseEntry)}
	for _, e := range entries {
		p.days[e.DayNumber] = append(p.days[e.DayNumber], e)
	}
	return p
}

// insert places e at 1-based position pos of its day; 0 or past the end appends.
func (p *dayPlan) insert(e domain.ExerciseEntry, pos int) {
	day := p.days[e.DayNumber]
	if pos < 1 || pos > len(day) {
		p.days[e.DayNumber] = append(day, e)
		return
	}
	day = append(day, domain.ExerciseEntry{})
	copy(day[pos:], day[pos-1:])
	day[pos-1] = e
	p.days[e.DayNumber] = day
}

func (p *dayPlan) lookup(id primitive.ObjectID) (domain.ExerciseEntry, bool) {
	for _, day := range p.days {
		for _, e := range day {
			if e.ID == id {
				return e, true
			}
		}
	}
	return domain.ExerciseEntry{}, false
}

// remove drops the entry and returns its former 1-based position (0 if absent).
func (p *dayPlan) remove(id primitive.ObjectID) int {
	for dayNumber, day := range p.days {
		for i, e := range day {
			if e.ID != id {
				continue
			}
			day = append(day[:i], day[i+1:]...)
			if len(day) == 0 {
				delete(p.days, dayNumber)
			} else {
				p.days[dayNumber] = day
			}
			return i + 1
		}
	}
	return 0
}

func (p *dayPlan) reorder(dayNumber int, ids []primitive.ObjectID) error {
	day := p.days[dayNumber]
	if len(ids) != len(day) {
		return ErrReorderMismatch
	}
	byID := make(map[primitive.ObjectID]domain.ExerciseEntry, len(day))
	for _, e := range day {
		byID[e.ID] = e
	}
	ordered := make([]domain.ExerciseEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return ErrReorderMismatch
		}
		delete(byID, id)
		ordered = append(ordered, e)
	}
	if len(ordered) > 0 {
		p.days[dayNumber] = ordered
	}
	return nil
}

func (p *dayPlan) dayCount() int {
	return len(p.days)
}

// dayNumbers returns the days holding at least one entry, ascending.
func (p *dayPlan) dayNumbers() []int {
	out := make([]int, 0, len(p.days))
	for d := range p.days {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func sameDays(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// flatten returns all entries ordered by day with OrderInDay renumbered 1..n.
func (p *dayPlan) flatten() []domain.ExerciseEntry {
	var out []domain.ExerciseEntry
	for _, d := range p.dayNumbers() {
		for i, e := range p.days[d] {
			e.OrderInDay = i + 1
			out = append(out, e)
		}
	}
	return out
}
