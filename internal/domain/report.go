package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is the metadata for a generated practicum report. The document
// body lives in object storage.
type Report struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"-"`
	Title      string    `json:"title"`
	Course     string    `json:"course,omitempty"`
	Summary    string    `json:"summary"`
	StorageKey string    `json:"-"`
	Model      string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReportInput is what the student submits for generation.
type ReportInput struct {
	Title        string `json:"title"`
	Course       string `json:"course"`
	Objective    string `json:"objective"`
	Methods      string `json:"methods"`
	Observations string `json:"observations"`
}
