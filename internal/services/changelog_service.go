package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"catalog-harmonization-service/internal/events"
	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
)

var (
	ErrLogNotFound     = errors.New("log entry not found")
	ErrAlreadyReverted = errors.New("log entry is already reverted")
	ErrNotReverted     = errors.New("log entry is not reverted")
)

// ChangeLogService exposes the audit ledger and its undo/redo transitions
type ChangeLogService struct {
	changelog repository.ChangeLogRepositoryInterface
	logLock   *KeyedMutex
	publisher *events.Publisher
	cache     *StatsCache
	logger    *logrus.Entry
}

// NewChangeLogService creates a new ChangeLogService
func NewChangeLogService(
	changelog repository.ChangeLogRepositoryInterface,
	publisher *events.Publisher,
	cache *StatsCache,
	logger *logrus.Logger,
) *ChangeLogService {
	return &ChangeLogService{
		changelog: changelog,
		logLock:   NewKeyedMutex(),
		publisher: publisher,
		cache:     cache,
		logger:    logger.WithField("component", "changelog"),
	}
}

// List returns log entries, newest first
func (s *ChangeLogService) List(ctx context.Context, limit int) ([]models.ChangeLogEntry, error) {
	entries, err := s.changelog.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ChangeLogEntry{}
	}
	return entries, nil
}

// Undo restores the pre-operation values of a log entry. Snapshot replay:
// whatever the cells hold now is overwritten with the stored old values.
func (s *ChangeLogService) Undo(ctx context.Context, logID uint) (*models.UndoRedoResult, error) {
	return s.toggle(ctx, logID, "undo")
}

// Redo re-applies the post-operation values of a reverted entry
func (s *ChangeLogService) Redo(ctx context.Context, logID uint) (*models.UndoRedoResult, error) {
	return s.toggle(ctx, logID, "redo")
}

func (s *ChangeLogService) toggle(ctx context.Context, logID uint, action string) (*models.UndoRedoResult, error) {
	key := "log:" + strconv.FormatUint(uint64(logID), 10)
	s.logLock.Lock(key)
	defer s.logLock.Unlock(key)

	var entry *models.ChangeLogEntry
	var err error
	if action == "undo" {
		entry, err = s.changelog.Revert(ctx, logID)
	} else {
		entry, err = s.changelog.Reapply(ctx, logID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrLogNotFound
		case errors.Is(err, repository.ErrAlreadyReverted):
			return nil, ErrAlreadyReverted
		case errors.Is(err, repository.ErrNotReverted):
			return nil, ErrNotReverted
		}
		return nil, err
	}

	// Step entries track their run state; an undone step shows pending again.
	if _, ok := StepByID(entry.StepID); ok {
		status := models.StepCompleted
		records := entry.RecordsUpdated
		if action == "undo" {
			status = models.StepPending
			records = 0
		}
		now := time.Now().UTC()
		state := &models.StepState{
			StepID:             entry.StepID,
			Status:             status,
			LastRun:            &now,
			LastRecordsUpdated: records,
		}
		if err := s.changelog.UpsertStepState(ctx, state); err != nil {
			s.logger.WithError(err).WithField("step_id", entry.StepID).Warn("Failed to update step state")
		}
	}

	s.cache.Invalidate(ctx)
	s.publisher.PublishLogReverted(entry.ID, action, len(entry.Changes))

	s.logger.WithFields(logrus.Fields{
		"log_id":           entry.ID,
		"action":           action,
		"records_restored": len(entry.Changes),
	}).Info("Change log entry toggled")

	return &models.UndoRedoResult{
		LogID:           entry.ID,
		Action:          action,
		RecordsRestored: len(entry.Changes),
		StepID:          entry.StepID,
		StepName:        entry.StepName,
	}, nil
}
