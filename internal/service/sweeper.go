package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPendingExpiry     = 14 * 24 * time.Hour
	DefaultRejectedRetention = 7 * 24 * time.Hour
)

// ArchiveWriter stores a purged assignment before it is deleted.
type ArchiveWriter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// SweeperConfig holds the sweep windows. Zero values fall back to the defaults.
type SweeperConfig struct {
	PendingExpiry     time.Duration
	RejectedRetention time.Duration
	ArchivePrefix     string
}

// ExpiryReport summarizes one expiry pass.
type ExpiryReport struct {
	Scanned   int
	Expired   int
	Conflicts int // overlay changed between read and conditional clear
	Failed    int
}

// CleanupReport summarizes one rejected-assignment purge.
type CleanupReport struct {
	Scanned        int
	Purged         int
	Skipped        int
	ArchiveFailure int
}

// Sweeper expires stale pending updates and purges old rejected assignments.
// Both passes are idempotent and safe to run concurrently with client actions.
type Sweeper interface {
	ExpireStalePendingUpdates(ctx context.Context, at time.Time, clientID *primitive.ObjectID) (ExpiryReport, error)
	CleanupOldRejected(ctx context.Context, at time.Time, clientID *primitive.ObjectID) (CleanupReport, error)
}

type sweeper struct {
	assignmentRepo repository.AssignmentRepository
	eventRepo      repository.EventRepository
	events         *EventRecorder
	archive        ArchiveWriter // nil disables archiving
	cfg            SweeperConfig
	log            *logger.Logger
}

func NewSweeper(
	assignmentRepo repository.AssignmentRepository,
	eventRepo repository.EventRepository,
	events *EventRecorder,
	archive ArchiveWriter,
	cfg SweeperConfig,
	log *logger.Logger,
) Sweeper {
	if cfg.PendingExpiry <= 0 {
		cfg.PendingExpiry = DefaultPendingExpiry
	}
	if cfg.RejectedRetention <= 0 {
		cfg.RejectedRetention = DefaultRejectedRetention
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "archive/assignments"
	}
	return &sweeper{
		assignmentRepo: assignmentRepo,
		eventRepo:      eventRepo,
		events:         events,
		archive:        archive,
		cfg:            cfg,
		log:            log,
	}
}

// ExpireStalePendingUpdates clears every overlay older than the expiry window.
// Each clear is conditional on the version ids read at the start; rows that
// moved in between are counted as conflicts and left alone.
func (s *sweeper) ExpireStalePendingUpdates(ctx context.Context, at time.Time, clientID *primitive.ObjectID) (ExpiryReport, error) {
	var report ExpiryReport
	cutoff := at.Add(-s.cfg.PendingExpiry)

	stale, err := s.assignmentRepo.FindStalePending(ctx, cutoff, clientID)
	if err != nil {
		return report, fmt.Errorf("finding stale pending updates: %w", err)
	}
	report.Scanned = len(stale)

	var errs []error
	for i := range stale {
		err := s.expireOne(ctx, &stale[i], at)
		switch {
		case err == nil:
			report.Expired++
		case errors.Is(err, ErrConcurrencyConflict):
			report.Conflicts++
		default:
			report.Failed++
			errs = append(errs, err)
		}
	}

	if report.Expired > 0 || report.Conflicts > 0 {
		s.log.Info("Expired stale pending updates",
			"scanned", report.Scanned, "expired", report.Expired, "conflicts", report.Conflicts)
	}
	return report, errors.Join(errs...)
}

// expireOne clears the overlay of a row as it was read.
func (s *sweeper) expireOne(ctx context.Context, a *domain.Assignment, at time.Time) error {
	pu := a.PendingUpdate
	if pu == nil {
		return ErrOverlayChanged
	}
	expect := repository.OverlayExpectation{
		CurrentVersionID: a.CurrentVersionID,
		PendingVersionID: pu.VersionID,
		PendingCreatedAt: pu.CreatedAt,
	}

	err := s.assignmentRepo.ClearPendingUpdate(ctx, a.ID, expect, at)
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
		s.log.Debug("Pending update changed before expiry, skipping", "assignmentId", a.ID.Hex())
		return ErrOverlayChanged
	}
	if err != nil {
		return fmt.Errorf("expiring pending update of %s: %w", a.ID.Hex(), err)
	}

	event := newEvent(a, domain.EventUpdateExpired, nil)
	// Addressed to whoever pushed, so they can be told the offer lapsed.
	event.ProfessionalID = pu.PushedBy
	event.FromVersionID = oid(a.CurrentVersionID)
	event.ToVersionID = oid(pu.VersionID)
	event.Notes = pu.Notes
	event.CreatedAt = at
	s.events.Record(ctx, event)
	return nil
}

// archivedAssignment is the document written to object storage on purge.
type archivedAssignment struct {
	Assignment domain.Assignment        `json:"assignment"`
	Events     []domain.AssignmentEvent `json:"events"`
	PurgedAt   time.Time                `json:"purgedAt"`
}

// CleanupOldRejected hard-deletes rejected assignments past the retention window.
func (s *sweeper) CleanupOldRejected(ctx context.Context, at time.Time, clientID *primitive.ObjectID) (CleanupReport, error) {
	var report CleanupReport
	cutoff := at.Add(-s.cfg.RejectedRetention)

	rejected, err := s.assignmentRepo.FindRejectedBefore(ctx, cutoff, clientID)
	if err != nil {
		return report, fmt.Errorf("finding old rejected assignments: %w", err)
	}
	report.Scanned = len(rejected)

	var errs []error
	for i := range rejected {
		a := &rejected[i]
		if !s.archiveOne(ctx, a, at) {
			report.ArchiveFailure++
		}

		err := s.assignmentRepo.DeleteRejected(ctx, a.ID, cutoff)
		switch {
		case err == nil:
			report.Purged++
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			report.Skipped++
		default:
			errs = append(errs, fmt.Errorf("purging assignment %s: %w", a.ID.Hex(), err))
		}
	}

	if report.Purged > 0 {
		s.log.Info("Purged old rejected assignments", "purged", report.Purged, "skipped", report.Skipped)
	}
	return report, errors.Join(errs...)
}

// archiveOne is best-effort; it reports false only when a configured archive failed.
func (s *sweeper) archiveOne(ctx context.Context, a *domain.Assignment, at time.Time) bool {
	if s.archive == nil {
		return true
	}
	events, err := s.eventRepo.GetByAssignmentID(ctx, a.ID)
	if err != nil {
		s.log.Warn("Could not load events for archive", "assignmentId", a.ID.Hex(), "error", err)
		events = nil
	}
	body, err := json.Marshal(archivedAssignment{Assignment: *a, Events: events, PurgedAt: at})
	if err != nil {
		s.log.Warn("Could not encode assignment archive", "assignmentId", a.ID.Hex(), "error", err)
		return false
	}
	key := path.Join(s.cfg.ArchivePrefix, a.ClientID.Hex(), a.ID.Hex()+".json")
	if err := s.archive.PutObject(ctx, key, body, "application/json"); err != nil {
		s.log.Warn("Failed to archive purged assignment", "assignmentId", a.ID.Hex(), "key", key, "error", err)
		return false
	}
	return true
}
