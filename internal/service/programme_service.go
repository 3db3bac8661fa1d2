package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxVersionNumberAttempts bounds the retries when two writers race for the
// same version number.
const maxVersionNumberAttempts = 5

var (
	ErrNotATemplate         = newError(KindValidation, "blueprint is not a template")
	ErrVersionNumberRace    = newError(KindConcurrencyConflict, "could not allocate a version number")
	ErrConcurrentActivation = newError(KindConcurrencyConflict, "another version was activated concurrently")
)

// BlueprintInput carries the editable metadata of a blueprint.
type BlueprintInput struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	GoalID      *primitive.ObjectID `json:"goalId,omitempty"`
	IsTemplate  bool                `json:"isTemplate"`
}

// --- Service Interface ---
type ProgrammeService interface {
	// Blueprints
	CreateBlueprint(ctx context.Context, proID primitive.ObjectID, input BlueprintInput) (*domain.Blueprint, error)
	GetBlueprint(ctx context.Context, actorID, blueprintID primitive.ObjectID) (*domain.Blueprint, error)
	ListBlueprints(ctx context.Context, proID primitive.ObjectID, includeArchived bool) ([]domain.Blueprint, error)
	ListTemplates(ctx context.Context) ([]domain.Blueprint, error)
	ArchiveBlueprint(ctx context.Context, proID, blueprintID primitive.ObjectID) (*domain.Blueprint, error)
	CloneTemplate(ctx context.Context, proID, templateID primitive.ObjectID) (*domain.Blueprint, *domain.Version, error)

	// Versions
	CreateVersion(ctx context.Context, proID, blueprintID primitive.ObjectID, notes string) (*domain.Version, error)
	CreateVersionFrom(ctx context.Context, proID, sourceVersionID primitive.ObjectID, notes string) (*domain.Version, error)
	GetVersion(ctx context.Context, actorID, versionID primitive.ObjectID) (*domain.Version, error)
	ListVersions(ctx context.Context, actorID, blueprintID primitive.ObjectID) ([]domain.Version, error)
	SubmitForReview(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error)
	ActivateVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error)
	ArchiveVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error)
	DeleteVersion(ctx context.Context, proID, versionID primitive.ObjectID) error
}

// --- Service Implementation ---

type programmeService struct {
	tx            repository.Transactor
	blueprintRepo repository.BlueprintRepository
	versionRepo   repository.VersionRepository
	entryRepo     repository.ExerciseEntryRepository
	log           *logger.Logger
}

// NewProgrammeService creates the blueprint/version authoring service.
func NewProgrammeService(
	tx repository.Transactor,
	blueprintRepo repository.BlueprintRepository,
	versionRepo repository.VersionRepository,
	entryRepo repository.ExerciseEntryRepository,
	log *logger.Logger,
) ProgrammeService {
	return &programmeService{
		tx:            tx,
		blueprintRepo: blueprintRepo,
		versionRepo:   versionRepo,
		entryRepo:     entryRepo,
		log:           log,
	}
}

// === Blueprints ===

func (s *programmeService) CreateBlueprint(ctx context.Context, proID primitive.ObjectID, input BlueprintInput) (*domain.Blueprint, error) {
	// 1. Validate Inputs
	if proID == primitive.NilObjectID {
		return nil, Validation("professional ID is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, Validation("blueprint name is required")
	}

	// 2. Create
	blueprint := &domain.Blueprint{
		OwnerID:     proID,
		OwnerKind:   domain.OwnerProfessional,
		Name:        name,
		Description: input.Description,
		GoalID:      input.GoalID,
		IsTemplate:  input.IsTemplate,
	}
	id, err := s.blueprintRepo.Create(ctx, blueprint)
	if err != nil {
		return nil, fmt.Errorf("creating blueprint: %w", err)
	}
	return s.blueprintRepo.GetByID(ctx, id)
}

// GetBlueprint returns a blueprint its owner may see, or any template.
func (s *programmeService) GetBlueprint(ctx context.Context, actorID, blueprintID primitive.ObjectID) (*domain.Blueprint, error) {
	blueprint, err := s.loadBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}
	if !canRead(blueprint, actorID) {
		return nil, ErrBlueprintAccessDenied
	}
	return blueprint, nil
}

func (s *programmeService) ListBlueprints(ctx context.Context, proID primitive.ObjectID, includeArchived bool) ([]domain.Blueprint, error) {
	if proID == primitive.NilObjectID {
		return nil, Validation("professional ID is required")
	}
	return s.blueprintRepo.GetByOwnerID(ctx, proID, includeArchived)
}

func (s *programmeService) ListTemplates(ctx context.Context) ([]domain.Blueprint, error) {
	return s.blueprintRepo.GetTemplates(ctx)
}

// ArchiveBlueprint flags the blueprint archived. Blueprints are never hard-deleted.
func (s *programmeService) ArchiveBlueprint(ctx context.Context, proID, blueprintID primitive.ObjectID) (*domain.Blueprint, error) {
	blueprint, err := s.ownedBlueprint(ctx, proID, blueprintID)
	if err != nil {
		return nil, err
	}
	if blueprint.IsArchived {
		return blueprint, nil
	}
	if err := s.blueprintRepo.SetArchived(ctx, blueprintID, true); err != nil {
		return nil, mapRepoErr(err, ErrBlueprintNotFound)
	}
	return s.blueprintRepo.GetByID(ctx, blueprintID)
}

// CloneTemplate copies a template's active version into a new blueprint owned
// by the professional, as draft version 1.
func (s *programmeService) CloneTemplate(ctx context.Context, proID, templateID primitive.ObjectID) (*domain.Blueprint, *domain.Version, error) {
	// 1. Validate the source
	template, err := s.loadBlueprint(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	if !template.IsTemplate || template.IsArchived {
		return nil, nil, ErrNotATemplate
	}
	source, err := s.activeVersion(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.entryRepo.GetByVersionID(ctx, source.ID)
	if err != nil {
		return nil, nil, err
	}

	// 2. Blueprint, version and entries appear together or not at all
	var blueprint *domain.Blueprint
	var version *domain.Version
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		clone := &domain.Blueprint{
			OwnerID:     proID,
			OwnerKind:   domain.OwnerProfessional,
			Name:        template.Name,
			Description: template.Description,
			GoalID:      template.GoalID,
		}
		if _, err := s.blueprintRepo.Create(ctx, clone); err != nil {
			return err
		}
		v := &domain.Version{
			BlueprintID:   clone.ID,
			VersionNumber: 1,
			Status:        domain.VersionDraft,
			Notes:         fmt.Sprintf("cloned from template %s v%d", template.Name, source.VersionNumber),
			CreatedBy:     proID,
		}
		if _, err := s.versionRepo.Create(ctx, v); err != nil {
			return err
		}
		if err := s.entryRepo.CreateMany(ctx, copyEntries(entries, v.ID)); err != nil {
			return err
		}
		blueprint, version = clone, v
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cloning template: %w", err)
	}

	s.log.Info("Template cloned", "templateId", templateID.Hex(), "blueprintId", blueprint.ID.Hex(), "proId", proID.Hex())
	return blueprint, version, nil
}

// === Versions ===

func (s *programmeService) CreateVersion(ctx context.Context, proID, blueprintID primitive.ObjectID, notes string) (*domain.Version, error) {
	if _, err := s.ownedWritableBlueprint(ctx, proID, blueprintID); err != nil {
		return nil, err
	}
	return s.createNextVersion(ctx, blueprintID, proID, notes, nil)
}

// CreateVersionFrom starts a new draft whose entries copy the source version.
func (s *programmeService) CreateVersionFrom(ctx context.Context, proID, sourceVersionID primitive.ObjectID, notes string) (*domain.Version, error) {
	source, _, err := s.ownedVersion(ctx, proID, sourceVersionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedWritableBlueprint(ctx, proID, source.BlueprintID); err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.GetByVersionID(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	if notes == "" {
		notes = fmt.Sprintf("copy of v%d", source.VersionNumber)
	}
	return s.createNextVersion(ctx, source.BlueprintID, proID, notes, func(ctx context.Context, v *domain.Version) error {
		return s.entryRepo.CreateMany(ctx, copyEntries(entries, v.ID))
	})
}

// createNextVersion inserts a draft numbered max+1. A duplicate number means a
// concurrent writer won the race; the whole attempt is retried with a fresh max.
func (s *programmeService) createNextVersion(ctx context.Context, blueprintID, proID primitive.ObjectID, notes string, fill func(ctx context.Context, v *domain.Version) error) (*domain.Version, error) {
	for attempt := 1; attempt <= maxVersionNumberAttempts; attempt++ {
		var created *domain.Version
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			max, err := s.versionRepo.MaxVersionNumber(ctx, blueprintID)
			if err != nil {
				return err
			}
			v := &domain.Version{
				BlueprintID:   blueprintID,
				VersionNumber: max + 1,
				Status:        domain.VersionDraft,
				Notes:         notes,
				CreatedBy:     proID,
			}
			if _, err := s.versionRepo.Create(ctx, v); err != nil {
				return err
			}
			if fill != nil {
				if err := fill(ctx, v); err != nil {
					return err
				}
			}
			created = v
			return nil
		})
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Debug("Version number taken, retrying", "blueprintId", blueprintID.Hex(), "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating version: %w", err)
		}
		return s.versionRepo.GetByID(ctx, created.ID)
	}
	return nil, ErrVersionNumberRace
}

func (s *programmeService) GetVersion(ctx context.Context, actorID, versionID primitive.ObjectID) (*domain.Version, error) {
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	blueprint, err := s.loadBlueprint(ctx, version.BlueprintID)
	if err != nil {
		return nil, err
	}
	if !canRead(blueprint, actorID) {
		return nil, ErrBlueprintAccessDenied
	}
	return version, nil
}

func (s *programmeService) ListVersions(ctx context.Context, actorID, blueprintID primitive.ObjectID) ([]domain.Version, error) {
	if _, err := s.GetBlueprint(ctx, actorID, blueprintID); err != nil {
		return nil, err
	}
	return s.versionRepo.GetByBlueprintID(ctx, blueprintID)
}

// SubmitForReview moves a draft to pending_review.
func (s *programmeService) SubmitForReview(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error) {
	version, _, err := s.ownedVersion(ctx, proID, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != domain.VersionDraft {
		return nil, ErrVersionNotDraft
	}
	err = s.versionRepo.UpdateStatus(ctx, versionID, []domain.VersionStatus{domain.VersionDraft}, domain.VersionPendingReview, nil)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrVersionNotDraft
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrVersionNotFound)
	}
	return s.versionRepo.GetByID(ctx, versionID)
}

// ActivateVersion archives the blueprint's active version and activates this
// one in a single transaction. Re-activating the active version is a no-op.
func (s *programmeService) ActivateVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error) {
	// 1. Authorize against the owning blueprint
	version, _, err := s.ownedVersion(ctx, proID, versionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedWritableBlueprint(ctx, proID, version.BlueprintID); err != nil {
		return nil, err
	}

	// 2. Swap the active version atomically
	var archived int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction; the status may have moved since.
		current, err := s.versionRepo.GetByID(ctx, versionID)
		if err != nil {
			return mapRepoErr(err, ErrVersionNotFound)
		}
		switch current.Status {
		case domain.VersionArchived:
			return ErrVersionArchived
		case domain.VersionActive:
			return nil
		}

		archived, err = s.versionRepo.ArchiveActive(ctx, current.BlueprintID, current.ID)
		if err != nil {
			return err
		}
		publishedAt := now()
		err = s.versionRepo.UpdateStatus(ctx, current.ID,
			[]domain.VersionStatus{domain.VersionDraft, domain.VersionPendingReview},
			domain.VersionActive, &publishedAt)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return ErrConcurrentActivation
		case errors.Is(err, repository.ErrConflict):
			return ErrVersionArchived
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Version activated",
		"versionId", versionID.Hex(),
		"blueprintId", version.BlueprintID.Hex(),
		"archivedPrevious", archived,
	)
	return s.versionRepo.GetByID(ctx, versionID)
}

// ArchiveVersion retires a version. Assignments keep their materialized sessions.
func (s *programmeService) ArchiveVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, error) {
	version, _, err := s.ownedVersion(ctx, proID, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == domain.VersionArchived {
		return version, nil
	}
	err = s.versionRepo.UpdateStatus(ctx, versionID,
		[]domain.VersionStatus{domain.VersionDraft, domain.VersionPendingReview, domain.VersionActive},
		domain.VersionArchived, nil)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return nil, mapRepoErr(err, ErrVersionNotFound)
	}
	return s.versionRepo.GetByID(ctx, versionID)
}

// DeleteVersion removes a non-active version together with its entries.
func (s *programmeService) DeleteVersion(ctx context.Context, proID, versionID primitive.ObjectID) error {
	if _, _, err := s.ownedVersion(ctx, proID, versionID); err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		version, err := s.versionRepo.GetByID(ctx, versionID)
		if err != nil {
			return mapRepoErr(err, ErrVersionNotFound)
		}
		if version.IsActive() {
			return ErrVersionActive
		}
		if _, err := s.entryRepo.DeleteByVersionID(ctx, versionID); err != nil {
			return err
		}
		return mapRepoErr(s.versionRepo.Delete(ctx, versionID), ErrVersionNotFound)
	})
}

// --- Helpers ---

func (s *programmeService) loadBlueprint(ctx context.Context, id primitive.ObjectID) (*domain.Blueprint, error) {
	blueprint, err := s.blueprintRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrBlueprintNotFound)
	}
	return blueprint, nil
}

func (s *programmeService) loadVersion(ctx context.Context, id primitive.ObjectID) (*domain.Version, error) {
	version, err := s.versionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrVersionNotFound)
	}
	return version, nil
}

func (s *programmeService) ownedBlueprint(ctx context.Context, proID, blueprintID primitive.ObjectID) (*domain.Blueprint, error) {
	blueprint, err := s.loadBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}
	if blueprint.OwnerID != proID {
		return nil, ErrBlueprintAccessDenied
	}
	return blueprint, nil
}

func (s *programmeService) ownedWritableBlueprint(ctx context.Context, proID, blueprintID primitive.ObjectID) (*domain.Blueprint, error) {
	blueprint, err := s.ownedBlueprint(ctx, proID, blueprintID)
	if err != nil {
		return nil, err
	}
	if blueprint.IsArchived {
		return nil, ErrBlueprintArchived
	}
	return blueprint, nil
}

func (s *programmeService) ownedVersion(ctx context.Context, proID, versionID primitive.ObjectID) (*domain.Version, *domain.Blueprint, error) {
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	blueprint, err := s.ownedBlueprint(ctx, proID, version.BlueprintID)
	if err != nil {
		return nil, nil, err
	}
	return version, blueprint, nil
}

func (s *programmeService) activeVersion(ctx context.Context, blueprintID primitive.ObjectID) (*domain.Version, error) {
	versions, err := s.versionRepo.GetByBlueprintID(ctx, blueprintID)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		if versions[i].IsActive() {
			return &versions[i], nil
		}
	}
	return nil, ErrVersionNotActive
}

func canRead(b *domain.Blueprint, actorID primitive.ObjectID) bool {
	return b.OwnerID == actorID || b.IsTemplate
}

// copyEntries prepares entries for insertion under another version.
func copyEntries(entries []domain.ExerciseEntry, versionID primitive.ObjectID) []domain.ExerciseEntry {
	out := make([]domain.ExerciseEntry, len(entries))
	for i, e := range entries {
		e.ID = primitive.NilObjectID
		e.VersionID = versionID
		e.CreatedAt = time.Time{}
		e.UpdatedAt = time.Time{}
		e.MuscleGroups = append([]string(nil), e.MuscleGroups...)
		if e.ExerciseID != nil {
			e.ExerciseID = oid(*e.ExerciseID)
		}
		if e.TargetWeight != nil {
			w := *e.TargetWeight
			e.TargetWeight = &w
		}
		out[i] = e
	}
	return out
}

// mapRepoErr turns repository.ErrNotFound into the caller's not-found error.
func mapRepoErr(err error, notFound *Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
