package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Blueprints ---

type blueprintRepo struct{ s *Store }

func (r *blueprintRepo) Create(ctx context.Context, blueprint *domain.Blueprint) (primitive.ObjectID, error) {
	err := r.s.write(ctx, "blueprints.Create", func(st *memoryState) error {
		blueprint.ID = primitive.NewObjectID()
		now := r.s.now()
		blueprint.CreatedAt = now
		blueprint.UpdatedAt = now
		st.blueprints[blueprint.ID] = cloneBlueprint(*blueprint)
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return blueprint.ID, nil
}

func (r *blueprintRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Blueprint, error) {
	var out *domain.Blueprint
	err := r.s.read(ctx, func(st *memoryState) error {
		b, ok := st.blueprints[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneBlueprint(b)
		out = &c
		return nil
	})
	return out, err
}

func (r *blueprintRepo) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID, includeArchived bool) ([]domain.Blueprint, error) {
	return r.filter(ctx, func(b domain.Blueprint) bool {
		return b.OwnerID == ownerID && (includeArchived || !b.IsArchived)
	})
}

func (r *blueprintRepo) GetTemplates(ctx context.Context) ([]domain.Blueprint, error) {
	return r.filter(ctx, func(b domain.Blueprint) bool {
		return b.IsTemplate && !b.IsArchived
	})
}

func (r *blueprintRepo) filter(ctx context.Context, keep func(domain.Blueprint) bool) ([]domain.Blueprint, error) {
	out := []domain.Blueprint{}
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, b := range st.blueprints {
			if keep(b) {
				out = append(out, cloneBlueprint(b))
			}
		}
		return nil
	})
	// Newest first, like the Mongo implementation
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *blueprintRepo) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) error {
	return r.s.write(ctx, "blueprints.SetArchived", func(st *memoryState) error {
		b, ok := st.blueprints[id]
		if !ok {
			return repository.ErrNotFound
		}
		b.IsArchived = archived
		b.UpdatedAt = r.s.now()
		st.blueprints[id] = b
		return nil
	})
}

// --- Versions ---

type versionRepo struct{ s *Store }

func (r *versionRepo) Create(ctx context.Context, version *domain.Version) (primitive.ObjectID, error) {
	err := r.s.write(ctx, "versions.Create", func(st *memoryState) error {
		for _, v := range st.versions {
			if v.BlueprintID == version.BlueprintID && v.VersionNumber == version.VersionNumber {
				return repository.ErrDuplicate
			}
			if version.Status == domain.VersionActive && v.BlueprintID == version.BlueprintID && v.Status == domain.VersionActive {
				return repository.ErrDuplicate
			}
		}
		version.ID = primitive.NewObjectID()
		now := r.s.now()
		version.CreatedAt = now
		version.UpdatedAt = now
		st.versions[version.ID] = cloneVersion(*version)
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return version.ID, nil
}

func (r *versionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Version, error) {
	var out *domain.Version
	err := r.s.read(ctx, func(st *memoryState) error {
		v, ok := st.versions[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneVersion(v)
		out = &c
		return nil
	})
	return out, err
}

func (r *versionRepo) GetByBlueprintID(ctx context.Context, blueprintID primitive.ObjectID) ([]domain.Version, error) {
	out := []domain.Version{}
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, v := range st.versions {
			if v.BlueprintID == blueprintID {
				out = append(out, cloneVersion(v))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, err
}

func (r *versionRepo) MaxVersionNumber(ctx context.Context, blueprintID primitive.ObjectID) (int, error) {
	max := 0
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, v := range st.versions {
			if v.BlueprintID == blueprintID && v.VersionNumber > max {
				max = v.VersionNumber
			}
		}
		return nil
	})
	return max, err
}

func (r *versionRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []domain.VersionStatus, to domain.VersionStatus, publishedAt *time.Time) error {
	return r.s.write(ctx, "versions.UpdateStatus", func(st *memoryState) error {
		v, ok := st.versions[id]
		if !ok {
			return repository.ErrNotFound
		}
		if !containsVersionStatus(from, v.Status) {
			return repository.ErrConflict
		}
		if to == domain.VersionActive {
			// mirrors the partial unique index on active versions
			for otherID, other := range st.versions {
				if otherID != id && other.BlueprintID == v.BlueprintID && other.Status == domain.VersionActive {
					return repository.ErrDuplicate
				}
			}
		}
		v.Status = to
		if publishedAt != nil {
			v.PublishedAt = cloneTime(publishedAt)
		}
		v.UpdatedAt = r.s.now()
		st.versions[id] = v
		return nil
	})
}

func (r *versionRepo) ArchiveActive(ctx context.Context, blueprintID, exceptID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.s.write(ctx, "versions.ArchiveActive", func(st *memoryState) error {
		now := r.s.now()
		for id, v := range st.versions {
			if id == exceptID || v.BlueprintID != blueprintID || v.Status != domain.VersionActive {
				continue
			}
			v.Status = domain.VersionArchived
			v.UpdatedAt = now
			st.versions[id] = v
			n++
		}
		return nil
	})
	return n, err
}

func (r *versionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.s.write(ctx, "versions.Delete", func(st *memoryState) error {
		if _, ok := st.versions[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.versions, id)
		return nil
	})
}

func containsVersionStatus(list []domain.VersionStatus, s domain.VersionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- Exercise entries ---

type entryRepo struct{ s *Store }

type dayOrder struct {
	version primitive.ObjectID
	day     int
	order   int
}

func (r *entryRepo) CreateMany(ctx context.Context, entries []domain.ExerciseEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.s.write(ctx, "entries.CreateMany", func(st *memoryState) error {
		taken := make(map[dayOrder]bool)
		for _, e := range st.entries {
			taken[dayOrder{e.VersionID, e.DayNumber, e.OrderInDay}] = true
		}
		for _, e := range entries {
			key := dayOrder{e.VersionID, e.DayNumber, e.OrderInDay}
			if taken[key] {
				return repository.ErrDuplicate
			}
			if _, exists := st.entries[e.ID]; exists && e.ID != primitive.NilObjectID {
				return repository.ErrDuplicate
			}
			taken[key] = true
		}
		now := r.s.now()
		for i := range entries {
			if entries[i].ID == primitive.NilObjectID {
				entries[i].ID = primitive.NewObjectID()
			}
			if entries[i].CreatedAt.IsZero() {
				entries[i].CreatedAt = now
			}
			entries[i].UpdatedAt = now
			st.entries[entries[i].ID] = cloneEntry(entries[i])
		}
		return nil
	})
}

func (r *entryRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseEntry, error) {
	var out *domain.ExerciseEntry
	err := r.s.read(ctx, func(st *memoryState) error {
		e, ok := st.entries[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneEntry(e)
		out = &c
		return nil
	})
	return out, err
}

func (r *entryRepo) GetByVersionID(ctx context.Context, versionID primitive.ObjectID) ([]domain.ExerciseEntry, error) {
	out := []domain.ExerciseEntry{}
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, e := range st.entries {
			if e.VersionID == versionID {
				out = append(out, cloneEntry(e))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayNumber != out[j].DayNumber {
			return out[i].DayNumber < out[j].DayNumber
		}
		return out[i].OrderInDay < out[j].OrderInDay
	})
	return out, err
}

func (r *entryRepo) DeleteByVersionID(ctx context.Context, versionID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.s.write(ctx, "entries.DeleteByVersionID", func(st *memoryState) error {
		for id, e := range st.entries {
			if e.VersionID == versionID {
				delete(st.entries, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
