package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/constants"
)

// Extraction is one journaled batch run for data transfer between layers.
type Extraction struct {
	ID           uuid.UUID           `json:"id"`
	SourcePath   string              `json:"source_path"`
	ContentHash  string              `json:"content_hash"`
	Status       constants.RunStatus `json:"status"`
	Record       *DocumentRecord     `json:"record,omitempty"`
	Diagnostics  *Diagnostics        `json:"diagnostics,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
}
