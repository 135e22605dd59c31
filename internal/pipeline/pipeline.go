// Package pipeline ties the stages together: intake, blob upload, warehouse
// ingestion, analysis, and plot preparation, gated by the session workflow.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pdtcore/internal/analysis"
	"pdtcore/internal/blob"
	"pdtcore/internal/blob/core"
	"pdtcore/internal/ingest"
	"pdtcore/internal/intake"
	"pdtcore/internal/observability"
	"pdtcore/internal/plotting"
	"pdtcore/internal/session"
	"pdtcore/internal/warehouse"
	"pdtcore/pkg/domain"
)

// Pipeline runs one session's pass through the stages. Stages advance the
// workflow only on success; a failed stage leaves the state unchanged so the
// same stage can be retried.
type Pipeline struct {
	workflow  *session.Workflow
	validator *intake.Validator
	uploader  *blob.Uploader
	orch      *ingest.Orchestrator
	log       *zap.Logger
	metrics   observability.Recorder

	selected []domain.ResultRow
	survival []domain.SurvivalRow
}

// UploadReport is the outcome of the intake stage: stored blob keys for the
// accepted files plus the per-file rejections.
type UploadReport struct {
	Keys       []string
	Rejections []domain.Rejection
}

// AnalysisResult is the outcome of the analysis stage.
type AnalysisResult struct {
	Survival  []domain.SurvivalRow
	Baselines []domain.ControlBaseline
	// Misses lists rows dropped because their pair had no control baseline.
	Misses []domain.MissingControlBaselineError
}

// New builds a pipeline with a fresh session. Nil settle, logger, and
// recorder fall back to the defaults of the underlying components.
func New(store core.Store, exec warehouse.Executor, settle ingest.SettleStrategy, log *zap.Logger, metrics observability.Recorder) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	workflow := session.NewWorkflow()
	return &Pipeline{
		workflow:  workflow,
		validator: intake.NewValidator(workflow.ID()),
		uploader:  blob.NewUploader(store),
		orch:      ingest.New(exec, settle, log, metrics),
		log:       log.With(zap.String("session", workflow.ID())),
		metrics:   metrics,
	}
}

// SessionID returns the identifier stamped on every uploaded row.
func (p *Pipeline) SessionID() string { return p.workflow.ID() }

// State returns the current workflow phase.
func (p *Pipeline) State() session.State { return p.workflow.State() }

func (p *Pipeline) requireState(want session.State) error {
	if got := p.workflow.State(); got != want {
		return fmt.Errorf("stage requires state %s, currently %s", want, got)
	}
	return nil
}

// UploadFiles validates the uploaded files and stores the accepted ones in
// the blob store. Rejections are reported per file; a batch with no valid
// file fails with ErrNoValidFiles and nothing is stored.
func (p *Pipeline) UploadFiles(ctx context.Context, files []domain.UploadedFile) (UploadReport, error) {
	if err := p.requireState(session.Start); err != nil {
		return UploadReport{}, err
	}
	valid, rejected := p.validator.Validate(files)
	for range valid {
		p.metrics.FileValidated()
	}
	for _, rejection := range rejected {
		p.metrics.FileRejected(string(rejection.Reason))
		p.log.Warn("file rejected", zap.String("file", rejection.FileName), zap.String("reason", string(rejection.Reason)))
	}
	report := UploadReport{Rejections: rejected}
	if len(valid) == 0 {
		return report, domain.ErrNoValidFiles
	}
	keys, err := p.uploader.Upload(ctx, valid)
	if err != nil {
		return report, fmt.Errorf("upload files: %w", err)
	}
	report.Keys = keys
	p.log.Info("files uploaded", zap.Int("accepted", len(valid)), zap.Int("rejected", len(rejected)))
	return report, p.workflow.Advance(session.FilesUploaded)
}

// Ingest resets the staging tables and runs the pipe refresh cycle. Per-table
// failures are reported in the returned map; they do not fail the stage.
func (p *Pipeline) Ingest(ctx context.Context) (map[string]ingest.TableResult, error) {
	if err := p.requireState(session.FilesUploaded); err != nil {
		return nil, err
	}
	if err := p.orch.ResetStaging(ctx); err != nil {
		return nil, fmt.Errorf("reset staging: %w", err)
	}
	results := p.orch.Refresh(ctx, ingest.StagingPipes())
	return results, p.workflow.Advance(session.DataIngested)
}

// Merge folds the staged rows into the normalized tables.
func (p *Pipeline) Merge(ctx context.Context) error {
	if err := p.requireState(session.DataIngested); err != nil {
		return err
	}
	if err := p.orch.Merge(ctx); err != nil {
		return err
	}
	return p.workflow.Advance(session.TablesMerged)
}

// SelectExperiment fetches this session's combined view and keeps the rows of
// one experiment. An experiment with no rows fails with ErrExperimentNotFound.
func (p *Pipeline) SelectExperiment(ctx context.Context, number int) ([]domain.ResultRow, error) {
	if err := p.requireState(session.TablesMerged); err != nil {
		return nil, err
	}
	rows, err := p.orch.FetchCombinedView(ctx, p.workflow.ID())
	if err != nil {
		return nil, err
	}
	selected := analysis.SelectExperiment(rows, number)
	if len(selected) == 0 {
		return nil, fmt.Errorf("experiment %d: %w", number, domain.ErrExperimentNotFound)
	}
	p.selected = selected
	p.log.Info("experiment selected", zap.Int("experiment", number), zap.Int("rows", len(selected)))
	return selected, p.workflow.Advance(session.ExperimentSelected)
}

// Analyze derives the replicate statistics, control baselines, and survival
// rates for the selected experiment.
func (p *Pipeline) Analyze() (AnalysisResult, error) {
	if err := p.requireState(session.ExperimentSelected); err != nil {
		return AnalysisResult{}, err
	}
	analyzed := analysis.Summarize(p.selected)
	baselines := analysis.ComputeControls(analyzed)
	survival, misses, err := analysis.Normalize(analyzed, baselines)
	if err != nil {
		return AnalysisResult{}, err
	}
	for _, miss := range misses {
		p.log.Warn("no control baseline for pair", zap.String("pair", miss.Key.String()))
	}
	p.metrics.RowsAnalyzed(len(analyzed))
	p.survival = survival
	result := AnalysisResult{Survival: survival, Baselines: baselines, Misses: misses}
	return result, p.workflow.Advance(session.Analyzed)
}

// PreparePlots partitions the survival rows into chart-ready subsets.
func (p *Pipeline) PreparePlots(filter domain.FilterType, selected, xColumn, yColumn string) ([]domain.PlotPartition, error) {
	if err := p.requireState(session.Analyzed); err != nil {
		return nil, err
	}
	partitions, err := plotting.Partition(p.survival, filter, selected, xColumn, yColumn)
	if err != nil {
		return nil, err
	}
	return partitions, p.workflow.Advance(session.Plotted)
}
