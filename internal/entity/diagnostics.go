package entity

import (
	"github.com/joseph-ayodele/document-extractor/constants"
)

// BackendFailure records an OCR engine or LLM backend that produced no contribution.
type BackendFailure struct {
	Backend string `json:"backend"`
	Reason  string `json:"reason"`
}

// ConsistencyWarning is raised when subtotal plus taxes does not match the total.
// The reported total is kept in the record.
type ConsistencyWarning struct {
	Expected   string `json:"expected"`
	Reported   string `json:"reported"`
	Difference string `json:"difference"`
}

// Diagnostics travels alongside a DocumentRecord and is never part of its JSON shape.
type Diagnostics struct {
	RequestID       string              `json:"request_id"`
	Stages          []constants.Stage   `json:"stages"`
	BackendsUsed    []string            `json:"backends_used"`
	BackendsFailed  []BackendFailure    `json:"backends_failed,omitempty"`
	LLMContributed  bool                `json:"llm_contributed"`
	LLMSkipReason   string              `json:"llm_skip_reason,omitempty"`
	DroppedRows     int                 `json:"dropped_rows"`
	DiscardedFields []string            `json:"discarded_fields,omitempty"`
	Consistency     *ConsistencyWarning `json:"consistency_warning,omitempty"`
	ElapsedMS       int64               `json:"elapsed_ms"`
}

// Advance appends stage to the trail. It refuses backward or repeated transitions.
func (d *Diagnostics) Advance(stage constants.Stage) bool {
	if n := len(d.Stages); n > 0 && !d.Stages[n-1].Before(stage) {
		return false
	}
	d.Stages = append(d.Stages, stage)
	return true
}

// Current returns the last stage reached, or StageInit when none was recorded.
func (d *Diagnostics) Current() constants.Stage {
	if len(d.Stages) == 0 {
		return constants.StageInit
	}
	return d.Stages[len(d.Stages)-1]
}
