package constants

// Stage is a pipeline state. Runs only ever move forward through these.
type Stage string

const (
	StageInit          Stage = "INIT"
	StageTextMerged    Stage = "TEXT_MERGED"
	StageRuleExtracted Stage = "RULE_EXTRACTED"
	StageLLMExtracted  Stage = "LLM_EXTRACTED" // only when a backend contributed
	StageMerged        Stage = "MERGED"
	StageFinalized     Stage = "FINALIZED"
)

var stageOrder = map[Stage]int{
	StageInit:          0,
	StageTextMerged:    1,
	StageRuleExtracted: 2,
	StageLLMExtracted:  3,
	StageMerged:        4,
	StageFinalized:     5,
}

// Before reports whether s comes strictly before other in the pipeline.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// RunStatus is the canonical outcome of one extraction run (stored in the journal).
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusCanceled  RunStatus = "CANCELED"
	RunStatusFailed    RunStatus = "FAILED" // input errors only
)
