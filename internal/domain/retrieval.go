package domain

import (
	"time"

	"github.com/google/uuid"
)

// RetrievalStatus represents the current status of a retrieval record
type RetrievalStatus string

const (
	StatusQueued     RetrievalStatus = "queued"
	StatusProcessing RetrievalStatus = "processing"
	StatusCompleted  RetrievalStatus = "completed"
	StatusFailed     RetrievalStatus = "failed"
)

// RetrievalMode selects how much of the pipeline a job runs
type RetrievalMode string

const (
	ModeFull     RetrievalMode = "full"     // resolve, fetch, assemble
	ModeLinkOnly RetrievalMode = "link"     // resolve only, print URLs
	ModeSubOnly  RetrievalMode = "subtitle" // resolve, download subtitle only
)

// RetrievalRecord is the persisted trace of one retrieval job
type RetrievalRecord struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	PageID       string          `json:"page_id" gorm:"not null;index"`
	Title        string          `json:"title"`
	Mode         RetrievalMode   `json:"mode" gorm:"default:full"`
	Status       RetrievalStatus `json:"status" gorm:"not null;index"`
	OutputPath   string          `json:"output_path,omitempty"`
	SubtitlePath string          `json:"subtitle_path,omitempty"`
	SegmentCount int             `json:"segment_count"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewRetrievalRecord creates a new retrieval record for a page
func NewRetrievalRecord(pageID, title string, mode RetrievalMode) *RetrievalRecord {
	return &RetrievalRecord{
		ID:        uuid.New().String(),
		PageID:    pageID,
		Title:     title,
		Mode:      mode,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// MarkProcessing marks the record as processing
func (r *RetrievalRecord) MarkProcessing() {
	r.Status = StatusProcessing
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkCompleted marks the record as completed
func (r *RetrievalRecord) MarkCompleted(outputPath, subtitlePath string) {
	r.Status = StatusCompleted
	r.OutputPath = outputPath
	r.SubtitlePath = subtitlePath
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the record as failed
func (r *RetrievalRecord) MarkFailed(err error) {
	r.Status = StatusFailed
	r.ErrorMessage = err.Error()
	r.UpdatedAt = time.Now()
}

// IsTerminal checks if the record is in a terminal state
func (r *RetrievalRecord) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// ValidateMode checks if a retrieval mode is valid
func ValidateMode(mode RetrievalMode) bool {
	return mode == ModeFull || mode == ModeLinkOnly || mode == ModeSubOnly
}
