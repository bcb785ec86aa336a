package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"catalog-harmonization-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadyReverted = errors.New("log entry is already reverted")
	ErrNotReverted     = errors.New("log entry is not reverted")
)

// ChangeLogRepositoryInterface defines data access for the harmonization
// change log and per-step run state.
type ChangeLogRepositoryInterface interface {
	ApplyChanges(ctx context.Context, entry *models.ChangeLogEntry, changes []models.FieldChange) (*models.ChangeLogEntry, error)
	List(ctx context.Context, limit int) ([]models.ChangeLogEntry, error)
	GetByID(ctx context.Context, id uint) (*models.ChangeLogEntry, error)
	Revert(ctx context.Context, id uint) (*models.ChangeLogEntry, error)
	Reapply(ctx context.Context, id uint) (*models.ChangeLogEntry, error)
	UpsertStepState(ctx context.Context, state *models.StepState) error
	ListStepStates(ctx context.Context) ([]models.StepState, error)
}

// ChangeLogRepository handles database operations for harmonization logs
type ChangeLogRepository struct {
	db *gorm.DB
}

// NewChangeLogRepository creates a new ChangeLogRepository
func NewChangeLogRepository(db *gorm.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

// ApplyChanges writes a batch of field rewrites and its log entry in a single
// transaction. The caller fills step_id, step_name and rule_batch_id on the
// entry and guarantees changes is non-empty with OldValue holding the current
// cell contents; records_updated and fields_modified are derived here.
func (r *ChangeLogRepository) ApplyChanges(ctx context.Context, entry *models.ChangeLogEntry, changes []models.FieldChange) (*models.ChangeLogEntry, error) {
	fieldSet := map[string]bool{}
	for _, c := range changes {
		if !models.IsProductField(c.Field) {
			return nil, fmt.Errorf("unknown product field %q", c.Field)
		}
		fieldSet[c.Field] = true
	}
	fields := make(models.StringList, 0, len(fieldSet))
	for f := range fieldSet {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	recordSet := map[uint]bool{}
	for _, c := range changes {
		recordSet[c.RecordID] = true
	}

	entry.RecordsUpdated = len(recordSet)
	entry.FieldsModified = fields

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			res := tx.Model(&models.Product{}).
				Where("id = ?", c.RecordID).
				Update(c.Field, c.NewValue)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %d: %w", c.RecordID, ErrNotFound)
			}
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		records := make([]models.ChangeRecord, 0, len(changes))
		for _, c := range changes {
			records = append(records, models.ChangeRecord{
				LogID:    entry.ID,
				RecordID: c.RecordID,
				Field:    c.Field,
				OldValue: c.OldValue,
				NewValue: c.NewValue,
			})
		}
		return tx.CreateInBatches(records, 500).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List retrieves log entries, newest first
func (r *ChangeLogRepository) List(ctx context.Context, limit int) ([]models.ChangeLogEntry, error) {
	var entries []models.ChangeLogEntry
	query := r.db.WithContext(ctx).Order("executed_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// GetByID retrieves a log entry with its change records
func (r *ChangeLogRepository) GetByID(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	var entry models.ChangeLogEntry
	err := r.db.WithContext(ctx).Preload("Changes").First(&entry, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Revert restores the old values of every change record of an entry and marks
// the entry reverted, all in one transaction. Returns ErrAlreadyReverted when
// the entry was reverted by a concurrent request.
func (r *ChangeLogRepository) Revert(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	return r.replay(ctx, id, false)
}

// Reapply restores the new values of a reverted entry and clears its reverted
// flag. Returns ErrNotReverted when the entry is still active.
func (r *ChangeLogRepository) Reapply(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	return r.replay(ctx, id, true)
}

func (r *ChangeLogRepository) replay(ctx context.Context, id uint, reapply bool) (*models.ChangeLogEntry, error) {
	var entry models.ChangeLogEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so concurrent undo/redo of the same entry serialize.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Changes").
			First(&entry, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if reapply && !entry.Reverted {
			return ErrNotReverted
		}
		if !reapply && entry.Reverted {
			return ErrAlreadyReverted
		}

		for _, c := range entry.Changes {
			value := c.OldValue
			if reapply {
				value = c.NewValue
			}
			if err := tx.Model(&models.Product{}).
				Where("id = ?", c.RecordID).
				Update(c.Field, value).Error; err != nil {
				return err
			}
		}

		entry.Reverted = !reapply
		return tx.Model(&models.ChangeLogEntry{}).
			Where("id = ?", entry.ID).
			Update("reverted", entry.Reverted).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertStepState creates or replaces a step's run bookkeeping
func (r *ChangeLogRepository) UpsertStepState(ctx context.Context, state *models.StepState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "step_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_run", "last_records_updated", "updated_at"}),
	}).Create(state).Error
}

// ListStepStates retrieves all persisted step states
func (r *ChangeLogRepository) ListStepStates(ctx context.Context) ([]models.StepState, error) {
	var states []models.StepState
	err := r.db.WithContext(ctx).Find(&states).Error
	return states, err
}
