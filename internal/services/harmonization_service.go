package services

import (
	"context"
	"errors"
	"time"

	"catalog-harmonization-service/internal/events"
	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
)

var ErrStepNotFound = errors.New("harmonization step not found")

// StepListResult is the pipeline overview for the dashboard
type StepListResult struct {
	Steps         []models.StepDefinition `json:"steps"`
	TotalProducts int64                   `json:"total_products"`
}

// ApplyAllResult wraps the per-step outcomes of a full pipeline run
type ApplyAllResult struct {
	Results []models.ApplyResult `json:"results"`
}

// HarmonizationService runs the fixed cleaning pipeline against the catalog
type HarmonizationService struct {
	products   repository.ProductRepositoryInterface
	changelog  repository.ChangeLogRepositoryInterface
	stepLock   *KeyedMutex
	publisher  *events.Publisher
	cache      *StatsCache
	sampleSize int
	logger     *logrus.Entry
}

// NewHarmonizationService creates a new HarmonizationService
func NewHarmonizationService(
	products repository.ProductRepositoryInterface,
	changelog repository.ChangeLogRepositoryInterface,
	publisher *events.Publisher,
	cache *StatsCache,
	sampleSize int,
	logger *logrus.Logger,
) *HarmonizationService {
	if sampleSize <= 0 {
		sampleSize = 10
	}
	return &HarmonizationService{
		products:   products,
		changelog:  changelog,
		stepLock:   NewKeyedMutex(),
		publisher:  publisher,
		cache:      cache,
		sampleSize: sampleSize,
		logger:     logger.WithField("component", "harmonization"),
	}
}

// ListSteps joins the static step catalog with persisted run state
func (s *HarmonizationService) ListSteps(ctx context.Context) (*StepListResult, error) {
	states, err := s.changelog.ListStepStates(ctx)
	if err != nil {
		return nil, err
	}
	stateByID := make(map[string]models.StepState, len(states))
	for _, st := range states {
		stateByID[st.StepID] = st
	}

	stats, err := s.products.Stats(ctx)
	if err != nil {
		return nil, err
	}

	result := &StepListResult{TotalProducts: stats.TotalProducts}
	for _, step := range Steps() {
		def := models.StepDefinition{
			StepID:      step.ID,
			Name:        step.Name,
			Description: step.Description,
			Order:       step.Order,
			Status:      models.StepPending,
		}
		if st, ok := stateByID[step.ID]; ok {
			def.Status = st.Status
			def.LastRun = st.LastRun
			def.LastRecordsUpdated = st.LastRecordsUpdated
		}
		result.Steps = append(result.Steps, def)
	}
	return result, nil
}

// computeChanges runs a step's transform over the whole catalog in primary
// key order, so previews and samples are deterministic.
func (s *HarmonizationService) computeChanges(ctx context.Context, step *Step) ([]models.FieldChange, error) {
	products, err := s.products.ListAllOrdered(ctx)
	if err != nil {
		return nil, err
	}
	var changes []models.FieldChange
	for i := range products {
		changes = append(changes, step.Transform(&products[i])...)
	}
	return changes, nil
}

// Preview reports what a step would change without mutating anything
func (s *HarmonizationService) Preview(ctx context.Context, stepID string) (*models.PreviewResult, error) {
	step, ok := StepByID(stepID)
	if !ok {
		return nil, ErrStepNotFound
	}

	changes, err := s.computeChanges(ctx, step)
	if err != nil {
		return nil, err
	}

	affected := map[uint]bool{}
	for _, c := range changes {
		affected[c.RecordID] = true
	}

	result := &models.PreviewResult{
		StepID:        step.ID,
		StepName:      step.Name,
		TotalAffected: len(affected),
		SampleChanges: []models.SampleChange{},
	}
	for _, c := range changes {
		if len(result.SampleChanges) >= s.sampleSize {
			break
		}
		result.SampleChanges = append(result.SampleChanges, models.SampleChange{
			RecordID: c.RecordID,
			Field:    c.Field,
			OldValue: c.OldValue,
			NewValue: c.NewValue,
		})
	}
	return result, nil
}

// Apply executes a step: one transaction for the writes and the log entry,
// then the step state is stamped. Re-applying a clean step reports zero
// updates and writes no log entry.
func (s *HarmonizationService) Apply(ctx context.Context, stepID string) (*models.ApplyResult, error) {
	step, ok := StepByID(stepID)
	if !ok {
		return nil, ErrStepNotFound
	}

	s.stepLock.Lock("step:" + step.ID)
	defer s.stepLock.Unlock("step:" + step.ID)

	changes, err := s.computeChanges(ctx, step)
	if err != nil {
		return nil, err
	}

	result := &models.ApplyResult{
		StepID:         step.ID,
		StepName:       step.Name,
		FieldsModified: []string{},
	}

	now := time.Now().UTC()
	if len(changes) == 0 {
		state := &models.StepState{
			StepID:  step.ID,
			Status:  models.StepCompleted,
			LastRun: &now,
		}
		if err := s.changelog.UpsertStepState(ctx, state); err != nil {
			return nil, err
		}
		return result, nil
	}

	entry := &models.ChangeLogEntry{StepID: step.ID, StepName: step.Name}
	entry, err = s.changelog.ApplyChanges(ctx, entry, changes)
	if err != nil {
		return nil, err
	}

	state := &models.StepState{
		StepID:             step.ID,
		Status:             models.StepCompleted,
		LastRun:            &now,
		LastRecordsUpdated: entry.RecordsUpdated,
	}
	if err := s.changelog.UpsertStepState(ctx, state); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.publisher.PublishStepApplied(step.ID, entry.ID, entry.RecordsUpdated)

	result.RecordsUpdated = entry.RecordsUpdated
	result.FieldsModified = entry.FieldsModified
	result.LogID = entry.ID

	s.logger.WithFields(logrus.Fields{
		"step_id":         step.ID,
		"records_updated": entry.RecordsUpdated,
		"log_id":          entry.ID,
	}).Info("Harmonization step applied")
	return result, nil
}

// ApplyAll runs every step in order. Later steps see earlier steps' effects.
// A step failure is reported in its slot; committed steps stay committed.
func (s *HarmonizationService) ApplyAll(ctx context.Context) *ApplyAllResult {
	result := &ApplyAllResult{Results: make([]models.ApplyResult, 0, len(Steps()))}
	for _, step := range Steps() {
		applied, err := s.Apply(ctx, step.ID)
		if err != nil {
			s.logger.WithError(err).WithField("step_id", step.ID).Error("Harmonization step failed")
			result.Results = append(result.Results, models.ApplyResult{
				StepID:         step.ID,
				StepName:       step.Name,
				FieldsModified: []string{},
				Error:          err.Error(),
			})
			continue
		}
		result.Results = append(result.Results, *applied)
	}
	return result
}
