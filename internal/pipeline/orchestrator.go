// Package pipeline sequences the three external-service stages that turn a
// product entry into a published pin: copy generation, image editing, and
// publishing. Each stage is gated on the previous one; there is no partial
// result worth acting on and no rollback of completed stages.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"pinflow/internal/domain"
	"pinflow/internal/infra"
	"pinflow/internal/providers/copywriter"
	"pinflow/internal/providers/imageedit"
	"pinflow/internal/providers/publisher"
)

const (
	defaultStageTimeout   = 60 * time.Second
	defaultRetryAttempts  = 2
	defaultRetryInterval  = 500 * time.Millisecond
	defaultInstructionMax = 2000
)

// Options wires the adapters and policy knobs into an Orchestrator.
type Options struct {
	Copywriter copywriter.Generator
	Editor     imageedit.Editor
	Publisher  publisher.Publisher

	// BoardID is the target board every run publishes to. Validated here,
	// once, instead of per call.
	BoardID string

	InstructionMaxChars int
	StageTimeout        time.Duration
	// RetryMaxAttempts caps extra attempts after a transient failure on the
	// copy and edit stages. Publishing is never retried.
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration

	Logger *infra.Logger
}

// Orchestrator executes pipeline runs. It holds no per-run state, so a single
// instance serves concurrent requests.
type Orchestrator struct {
	copywriter copywriter.Generator
	editor     imageedit.Editor
	publisher  publisher.Publisher

	boardID        string
	instructionMax int
	stageTimeout   time.Duration
	retryAttempts  int
	retryInterval  time.Duration

	logger *infra.Logger
}

// New validates the wiring and returns a ready orchestrator. A missing
// adapter or board id is a construction error, not a per-run failure.
func New(opts Options) (*Orchestrator, error) {
	if opts.Copywriter == nil {
		return nil, errors.New("pipeline: copywriter adapter is required")
	}
	if opts.Editor == nil {
		return nil, errors.New("pipeline: image editor adapter is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("pipeline: publisher adapter is required")
	}
	if opts.BoardID == "" {
		return nil, errors.New("pipeline: target board id is required")
	}
	instructionMax := opts.InstructionMaxChars
	if instructionMax <= 0 {
		instructionMax = defaultInstructionMax
	}
	stageTimeout := opts.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = defaultStageTimeout
	}
	retryAttempts := opts.RetryMaxAttempts
	if retryAttempts < 0 {
		retryAttempts = defaultRetryAttempts
	}
	retryInterval := opts.RetryInitialInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Orchestrator{
		copywriter:     opts.Copywriter,
		editor:         opts.Editor,
		publisher:      opts.Publisher,
		boardID:        opts.BoardID,
		instructionMax: instructionMax,
		stageTimeout:   stageTimeout,
		retryAttempts:  retryAttempts,
		retryInterval:  retryInterval,
		logger:         logger,
	}, nil
}

// Run executes one pipeline invocation: validate, generate copy, edit the
// image, publish. The returned run is always terminal; failures are attributed
// to the stage that produced them and artifacts of completed stages stay on
// the run for diagnostics.
func (o *Orchestrator) Run(ctx context.Context, in domain.ProductInput) *domain.PipelineRun {
	run := domain.NewPipelineRun(in)
	log := o.logger.With().Str("run_id", run.ID).Logger()

	if err := in.Validate(); err != nil {
		run.Fail(domain.StageValidate, err)
		log.Warn().Str("reason", domain.MessageOf(err)).Msg("pipeline: input rejected")
		return run
	}
	run.MarkValidated()

	concept, err := o.generateConcept(ctx, in)
	if err != nil {
		run.Fail(domain.StageCopy, err)
		o.logFailure(log, run)
		return run
	}
	run.SetConcept(concept)
	log.Debug().Str("title", concept.Title).Int("tags", len(concept.Tags)).Msg("pipeline: concept ready")

	if err := cancelled(ctx); err != nil {
		run.Fail(domain.StageEdit, err)
		o.logFailure(log, run)
		return run
	}
	instruction := imageedit.BuildInstruction(concept, in.PromoAngle, o.instructionMax)
	edited, err := o.editImage(ctx, in.Image, instruction)
	if err != nil {
		run.Fail(domain.StageEdit, err)
		o.logFailure(log, run)
		return run
	}
	run.SetEdited(edited)
	log.Debug().Int("bytes", len(edited.Data)).Str("content_type", edited.ContentType).Msg("pipeline: edited image ready")

	if err := cancelled(ctx); err != nil {
		run.Fail(domain.StagePublish, err)
		o.logFailure(log, run)
		return run
	}
	// Publishing creates a durable public artifact; a retry after a
	// slow-but-successful acknowledgement would mint duplicate pins, so this
	// stage gets exactly one attempt.
	pubCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	result, err := o.publisher.Publish(pubCtx, edited, concept, in.AffiliateLink, o.boardID)
	if err != nil {
		run.Fail(domain.StagePublish, classifyCancellation(err))
		o.logFailure(log, run)
		return run
	}
	run.SetPublished(result)
	log.Info().Str("pin_id", result.PinID).Str("pin_url", result.PinURL).Msg("pipeline: run published")
	return run
}

func (o *Orchestrator) generateConcept(ctx context.Context, in domain.ProductInput) (domain.Concept, error) {
	var concept domain.Concept
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
		c, err := o.copywriter.GenerateConcept(callCtx, in)
		if err != nil {
			return retryableOnly(err)
		}
		concept = c
		return nil
	}
	if err := backoff.Retry(op, o.newBackOff(ctx)); err != nil {
		return domain.Concept{}, classifyCancellation(err)
	}
	return concept, nil
}

func (o *Orchestrator) editImage(ctx context.Context, image domain.UploadedImage, instruction string) (domain.EditedImage, error) {
	var edited domain.EditedImage
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
		e, err := o.editor.EditImage(callCtx, image, instruction)
		if err != nil {
			return retryableOnly(err)
		}
		edited = e
		return nil
	}
	if err := backoff.Retry(op, o.newBackOff(ctx)); err != nil {
		return domain.EditedImage{}, classifyCancellation(err)
	}
	return edited, nil
}

// newBackOff bounds retries to the configured attempt count and stops as soon
// as the request context is done.
func (o *Orchestrator) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.retryInterval
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(o.retryAttempts)), ctx)
}

// retryableOnly lets only transient upstream failures back into the retry
// loop; every other kind aborts immediately.
func retryableOnly(err error) error {
	if domain.KindOf(err) == domain.KindUpstreamUnavailable {
		return err
	}
	return backoff.Permanent(err)
}

// cancelled reports a caller cancellation as the transient failure it is for
// the current stage; completed stages are never compensated.
func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.Wrap(domain.KindUpstreamUnavailable, "run cancelled before the stage call was issued", err)
	}
	return nil
}

// classifyCancellation keeps adapter classifications, and maps bare context
// errors (e.g. the retry loop interrupted mid-wait) onto the taxonomy.
func classifyCancellation(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindUpstreamUnavailable, "stage call cancelled before completion", err)
	}
	return err
}

func (o *Orchestrator) logFailure(log zerolog.Logger, run *domain.PipelineRun) {
	f := run.Failure
	log.Warn().
		Str("stage", string(f.Stage)).
		Str("kind", string(f.Kind)).
		Str("reason", f.Message).
		Msg("pipeline: run failed")
}
