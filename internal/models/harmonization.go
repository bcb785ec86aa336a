package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a JSON array of strings in a single column.
type StringList []string

// Value implements driver.Valuer
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// ChangeLogEntry is one applied mutation batch (a rule apply or a
// harmonization step run) together with its undo state.
type ChangeLogEntry struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StepID         string     `gorm:"type:varchar(64);not null;index" json:"step_id"`
	RuleBatchID    *string    `gorm:"type:varchar(36)" json:"rule_batch_id,omitempty"`
	StepName       string     `gorm:"type:varchar(128);not null" json:"step_name"`
	RecordsUpdated int        `gorm:"not null" json:"records_updated"`
	FieldsModified StringList `gorm:"type:jsonb" json:"fields_modified"`
	ExecutedAt     time.Time  `gorm:"autoCreateTime;index" json:"executed_at"`
	Reverted       bool       `gorm:"default:false" json:"reverted"`

	Changes []ChangeRecord `gorm:"foreignKey:LogID" json:"-"`
}

// TableName specifies the table name for ChangeLogEntry
func (ChangeLogEntry) TableName() string {
	return "harmonization_logs"
}

// ChangeRecord is the before/after snapshot of one cell, owned by a log entry.
type ChangeRecord struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	LogID    uint    `gorm:"not null;index" json:"log_id"`
	RecordID uint    `gorm:"not null" json:"record_id"`
	Field    string  `gorm:"type:varchar(64);not null" json:"field"`
	OldValue *string `gorm:"type:text" json:"old_value"`
	NewValue *string `gorm:"type:text" json:"new_value"`
}

// TableName specifies the table name for ChangeRecord
func (ChangeRecord) TableName() string {
	return "harmonization_change_records"
}

// StepStatus is the lifecycle state of a pipeline step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

// StepState persists the last-run bookkeeping of one pipeline step.
type StepState struct {
	StepID             string     `gorm:"primaryKey;type:varchar(64)" json:"step_id"`
	Status             StepStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	LastRun            *time.Time `json:"last_run"`
	LastRecordsUpdated int        `gorm:"default:0" json:"last_records_updated"`
	UpdatedAt          time.Time  `json:"-"`
}

// TableName specifies the table name for StepState
func (StepState) TableName() string {
	return "harmonization_step_states"
}

// StepDefinition is the read model of one pipeline step for the dashboard.
type StepDefinition struct {
	StepID             string     `json:"step_id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Order              int        `json:"order"`
	Status             StepStatus `json:"status"`
	LastRun            *time.Time `json:"last_run"`
	LastRecordsUpdated int        `json:"last_records_updated"`
}

// SampleChange is one row of a preview's sample set.
type SampleChange struct {
	RecordID uint    `json:"record_id"`
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// PreviewResult describes what a step would do without mutating anything.
type PreviewResult struct {
	StepID        string         `json:"step_id"`
	StepName      string         `json:"step_name"`
	TotalAffected int            `json:"total_affected"`
	SampleChanges []SampleChange `json:"sample_changes"`
}

// ApplyResult reports a committed step run. LogID is zero when the run
// changed nothing and therefore produced no log entry.
type ApplyResult struct {
	StepID         string   `json:"step_id"`
	StepName       string   `json:"step_name"`
	RecordsUpdated int      `json:"records_updated"`
	FieldsModified []string `json:"fields_modified"`
	LogID          uint     `json:"log_id"`
	Error          string   `json:"error,omitempty"`
}

// UndoRedoResult reports a revert or re-apply of a log entry.
type UndoRedoResult struct {
	LogID           uint   `json:"log_id"`
	Action          string `json:"action"`
	RecordsRestored int    `json:"records_restored"`
	StepID          string `json:"step_id"`
	StepName        string `json:"step_name"`
}
