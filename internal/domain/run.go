package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage names one of the ordered steps of a pipeline run.
type Stage string

const (
	StageValidate Stage = "validate"
	StageCopy     Stage = "copy"
	StageEdit     Stage = "edit"
	StagePublish  Stage = "publish"
)

// Status tracks how far a run has advanced. Transitions are strictly
// forward; Published and Failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusCopyDone  Status = "copy_done"
	StatusEditDone  Status = "edit_done"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// PipelineRun aggregates everything produced during one orchestration: the
// input, the intermediate artifacts as stages complete, and the terminal
// outcome. A run is owned by exactly one orchestration invocation and is
// discarded once the response has been rendered.
type PipelineRun struct {
	ID        string
	StartedAt time.Time
	Input     ProductInput

	Concept *Concept
	Edited  *EditedImage
	Publish *PublishResult

	Status  Status
	Failure *StageError
}

// NewPipelineRun starts a run in the Pending state.
func NewPipelineRun(in ProductInput) *PipelineRun {
	return &PipelineRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Input:     in,
		Status:    StatusPending,
	}
}

// Terminal reports whether the run can no longer advance.
func (r *PipelineRun) Terminal() bool {
	return r.Status == StatusPublished || r.Status == StatusFailed
}

// MarkValidated records that local validation passed.
func (r *PipelineRun) MarkValidated() {
	if r.Terminal() {
		return
	}
	r.Status = StatusValidated
}

// SetConcept records the copy stage result and advances the run.
func (r *PipelineRun) SetConcept(c Concept) {
	if r.Terminal() {
		return
	}
	r.Concept = &c
	r.Status = StatusCopyDone
}

// SetEdited records the edit stage result and advances the run.
func (r *PipelineRun) SetEdited(img EditedImage) {
	if r.Terminal() {
		return
	}
	r.Edited = &img
	r.Status = StatusEditDone
}

// SetPublished records the publish result and completes the run.
func (r *PipelineRun) SetPublished(res PublishResult) {
	if r.Terminal() {
		return
	}
	r.Publish = &res
	r.Status = StatusPublished
}

// Fail marks the run failed at the given stage. Artifacts from stages that
// already completed stay on the run for diagnostics; nothing is rolled back.
func (r *PipelineRun) Fail(stage Stage, err error) {
	if r.Terminal() {
		return
	}
	r.Status = StatusFailed
	r.Failure = FailStage(stage, err)
}
