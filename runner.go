package fcbatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulbellamy/ratecounter"
	"go.uber.org/zap"
)

const (
	runnerRowLoadMetricName     = "runner_row_load"
	runnerRowsLoadedMetricName  = "runner_rows_loaded"
	runnerRowsFailedMetricName  = "runner_rows_failed"
	runnerRowsPerMinuteMetric   = "runner_rows_per_minute"
	runnerMetadataRowsMetric    = "runner_metadata_rows"
	runnerChecksumMetricName    = "runner_row_checksum"
	runnerRepositoryCallsMetric = "runner_row_repository_calls"
)

// RunnerConfig represents a structure for the Runner config.
type RunnerConfig struct {
	Mapping    MappingConfig
	Namespaces Namespaces
	Input      Input
	Output     Output
	Tracker    Tracker
	// Indexer optionally feeds a search index after each loaded row.
	Indexer Indexer
	// RunIDPrefix is prepended to the generated run id.
	RunIDPrefix string
	// Transactions scopes each row into its own repository transaction when
	// the output supports them.
	Transactions bool
	// StopOnError aborts the run on the first row failure. Otherwise the
	// failure is tracked as an issue and the run continues with the next row.
	StopOnError bool
	Logger      *zap.Logger
	Metrics     MetricsTracker
}

// Validate validates the RunnerConfig fields.
func (c *RunnerConfig) Validate() error {
	if c.Input == nil {
		return fmt.Errorf("input is required")
	}
	if c.Output == nil {
		return fmt.Errorf("output is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("tracker is required")
	}
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("namespace bindings are required")
	}
	if c.Mapping.FileColumn == "" {
		return fmt.Errorf("mapping file column is required")
	}
	return nil
}

// NewRunner returns a preconfigured runner struct with all the configured
// storages prepared and set up.
func NewRunner(ctx context.Context, cfg RunnerConfig) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("the passed RunnerConfig is invalid: %v", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = emptyMetricsTracker{}
	}
	runID := buildRunID(cfg.RunIDPrefix)
	logger = logger.With(zap.String("run_id", runID))
	for _, storage := range []Storage{cfg.Input, cfg.Output, cfg.Tracker} {
		if err := initStorage(storage, ctx, runID, logger); err != nil {
			return nil, err
		}
	}
	if cfg.Indexer != nil {
		if err := initStorage(cfg.Indexer, ctx, runID, logger); err != nil {
			return nil, err
		}
	}
	metrics.Add(runnerRowLoadMetricName, "Time taken to load a single row pair")
	metrics.Add(runnerChecksumMetricName, "Time taken to checksum a single row binary")
	metrics.Add(runnerRepositoryCallsMetric, "Time taken by the repository calls of a single row")
	metrics.Add(runnerRowsLoadedMetricName, "Number of successfully loaded rows")
	metrics.Add(runnerRowsFailedMetricName, "Number of failed rows")
	metrics.Add(runnerRowsPerMinuteMetric, "Loaded rows per minute rate")
	metrics.Add(runnerMetadataRowsMetric, "Number of rows found in the metadata sheet")
	return &Runner{
		cfg:     cfg,
		runID:   runID,
		rate:    ratecounter.NewRateCounter(time.Minute),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Runner bundles the logic to read the metadata sheet, map each row to a
// resource pair and create the pair in the repository. Rows are processed
// strictly one at a time with blocking calls.
type Runner struct {
	cfg     RunnerConfig
	runID   string
	rate    *ratecounter.RateCounter
	metrics MetricsTracker
	logger  *zap.Logger

	loaded int
	failed int
}

// Run performs the load and shuts the storages down afterwards. It returns an
// error if the run could not start or, with StopOnError set, the first row
// failure.
func (r *Runner) Run(ctx context.Context) error {
	defer r.shutdown()
	r.logger.Info("runner is running")
	if err := r.cfg.Output.Ping(); err != nil {
		return fmt.Errorf("repository connection check failed: %v", err)
	}
	rows, err := r.readMetadata()
	if err != nil {
		return err
	}
	r.logger.Info("metadata sheet read", zap.Int("rows", len(rows)))
	r.metrics.Set(runnerMetadataRowsMetric, fmt.Sprintf("%d", len(rows)))
	for n, row := range rows {
		select {
		case <-ctx.Done():
			r.logger.Info("run has been stopped by context", zap.Int("row", n+1))
			return ctx.Err()
		default:
		}
		if err := r.loadRow(n+1, row); err != nil {
			r.failed++
			r.metrics.Set(runnerRowsFailedMetricName, fmt.Sprintf("%d", r.failed))
			if r.cfg.StopOnError {
				return err
			}
			issue, ok := err.(*Issue)
			if !ok {
				return err
			}
			if err := r.cfg.Tracker.TrackIssue(issue); err != nil {
				return fmt.Errorf("failed to track issue: %v", err)
			}
		}
	}
	r.logger.Info("run finished",
		zap.Int("loaded", r.loaded),
		zap.Int("failed", r.failed),
		zap.Int64("rows_per_minute", r.rate.Rate()),
	)
	return nil
}

// readMetadata opens and parses the metadata sheet from the input.
func (r *Runner) readMetadata() ([]Row, error) {
	sheet, err := r.cfg.Input.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to open the metadata sheet: %v", err)
	}
	defer sheet.Close()
	rows, err := ReadMetadata(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the metadata sheet: %v", err)
	}
	return rows, nil
}

// loadRow maps one row to a resource pair and creates it in the repository.
// Any failure is returned as an *Issue with the row context set.
func (r *Runner) loadRow(n int, row Row) error {
	start := time.Now()
	r.metrics.Start(runnerRowLoadMetricName)
	defer r.metrics.Stop(runnerRowLoadMetricName)
	resource, err := NewResource(row, r.cfg.Mapping, r.cfg.Namespaces)
	if err != nil {
		return r.rowIssue(n, "", StepParse, NewIssue(err, "failed to map the row", IssueTypeParsing, ""))
	}
	logger := r.logger.With(zap.Int("row", n), zap.String("label", resource.Label))
	logger.Info("row load start", zap.String("filename", resource.Filename))
	size, err := r.cfg.Input.StatBinary(resource.Filename)
	if err != nil {
		return r.rowIssue(n, resource.Label, StepScan,
			NewIssue(err, fmt.Sprintf("cannot access binary file %s", resource.Filename), IssueTypeDataIntegrity, ""))
	}
	if err := r.checksumBinary(resource); err != nil {
		return r.rowIssue(n, resource.Label, StepScan, NewIssue(err, "failed to checksum the binary", IssueTypeInfrastructure, ""))
	}
	logger.Info("binary checksummed", zap.String("sha1", resource.Checksum), zap.Int64("size", size))
	entry, err := r.createPair(resource, size)
	if err != nil {
		return r.rowIssue(n, resource.Label, StepExecute, NewIssue(err, "failed to create the resource pair", IssueTypePersistance, ""))
	}
	entry.Row = n
	entry.Duration = time.Since(start)
	if err := r.cfg.Tracker.TrackLoad(entry); err != nil {
		return r.rowIssue(n, resource.Label, StepTrack, NewIssue(err, "failed to write the load protocol", IssueTypeInfrastructure, ""))
	}
	r.indexRow(row, entry)
	r.loaded++
	r.rate.Incr(1)
	r.metrics.Set(runnerRowsLoadedMetricName, fmt.Sprintf("%d", r.loaded))
	r.metrics.Set(runnerRowsPerMinuteMetric, fmt.Sprintf("%d", r.rate.Rate()))
	logRowResult(logger, entry)
	return nil
}

// createPair issues the sequential repository calls for one resource pair:
// container create, binary create and the two property updates, optionally
// inside one repository transaction.
func (r *Runner) createPair(resource *Resource, size int64) (*LoadEntry, error) {
	r.metrics.Start(runnerRepositoryCallsMetric)
	defer r.metrics.Stop(runnerRepositoryCallsMetric)
	var parent, tx string
	txOutput, transactional := r.cfg.Output.(Transactional)
	if r.cfg.Transactions && transactional {
		opened, err := txOutput.Begin()
		if err != nil {
			return nil, fmt.Errorf("failed to open a transaction: %v", err)
		}
		tx = opened
		parent = tx
	}
	entry, err := r.createPairResources(resource, size, parent)
	if err != nil {
		if tx != "" {
			if rbErr := txOutput.Rollback(tx); rbErr != nil {
				r.logger.Warn("transaction rollback failed", zap.Error(rbErr))
			}
		}
		return nil, err
	}
	if tx != "" {
		if err := txOutput.Commit(tx); err != nil {
			return nil, fmt.Errorf("failed to commit the transaction: %v", err)
		}
	}
	return entry, nil
}

// createPairResources creates the container and its member binary under
// parent and attaches the RDF properties of both.
func (r *Runner) createPairResources(resource *Resource, size int64, parent string) (*LoadEntry, error) {
	objectURI, err := r.cfg.Output.CreateContainer(parent, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create the object container: %v", err)
	}
	data, err := r.cfg.Input.OpenBinary(resource.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open binary file %s: %v", resource.Filename, err)
	}
	defer data.Close()
	fileURI, err := r.cfg.Output.CreateBinary(objectURI, resource.Filename, resource.Checksum, data, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create the binary resource: %v", err)
	}
	objectPayload, err := resource.ObjectPayload(r.cfg.Namespaces, fileURI)
	if err != nil {
		return nil, err
	}
	if err := r.cfg.Output.UpdateProperties(objectURI, objectPayload); err != nil {
		return nil, fmt.Errorf("failed to update the object properties: %v", err)
	}
	filePayload, err := resource.FilePayload(r.cfg.Namespaces, objectURI)
	if err != nil {
		return nil, err
	}
	if err := r.cfg.Output.UpdateProperties(fileURI, filePayload); err != nil {
		return nil, fmt.Errorf("failed to update the binary properties: %v", err)
	}
	return &LoadEntry{
		Label:     resource.Label,
		ObjectURI: objectURI,
		FileURI:   fileURI,
		Checksum:  resource.Checksum,
		Created:   time.Now(),
	}, nil
}

// checksumBinary streams the row binary through a SHA-1 digest for the upload
// fixity header.
func (r *Runner) checksumBinary(resource *Resource) error {
	r.metrics.Start(runnerChecksumMetricName)
	defer r.metrics.Stop(runnerChecksumMetricName)
	data, err := r.cfg.Input.OpenBinary(resource.Filename)
	if err != nil {
		return err
	}
	defer data.Close()
	checksum, err := checksumSHA1(data)
	if err != nil {
		return err
	}
	resource.Checksum = checksum
	return nil
}

// indexRow feeds the optional search index with the mapped fields of a loaded
// row. Index failures are logged and tracked but never fail the row.
func (r *Runner) indexRow(row Row, entry *LoadEntry) {
	if r.cfg.Indexer == nil {
		return
	}
	fields := make(map[string]interface{}, len(r.cfg.Mapping.Columns)+2)
	for column, mapping := range r.cfg.Mapping.Columns {
		values := row.Values(column, mapping.Delimiter)
		switch len(values) {
		case 0:
		case 1:
			fields[column] = values[0]
		default:
			fields[column] = values
		}
	}
	fields["object_uri"] = entry.ObjectURI
	fields["file_uri"] = entry.FileURI
	if err := r.cfg.Indexer.IndexResource(entry.ObjectURI, fields); err != nil {
		r.logger.Warn("failed to index the loaded row", zap.Int("row", entry.Row), zap.Error(err))
		issue := NewIssue(err, "failed to index the loaded row", IssueTypeInfrastructure, "")
		issue.complete(entry.Row, entry.Label, StepOther)
		if err := r.cfg.Tracker.TrackIssue(issue); err != nil {
			r.logger.Warn("failed to track the index issue", zap.Error(err))
		}
	}
}

// rowIssue completes the issue with the row context and returns it.
func (r *Runner) rowIssue(row int, label string, step Step, issue *Issue) error {
	issue.complete(row, label, step)
	r.logger.Error("row load failed",
		zap.Int("row", row),
		zap.String("label", label),
		zap.String("step", step.String()),
		zap.NamedError("error_message", issue.Err),
	)
	return issue
}

// shutdown runs Shutdown for the runner storages.
func (r *Runner) shutdown() {
	r.logger.Info("shutting down the runner")
	r.cfg.Input.Shutdown()
	r.cfg.Output.Shutdown()
	r.cfg.Tracker.Shutdown()
	if r.cfg.Indexer != nil {
		r.cfg.Indexer.Shutdown()
	}
	r.logger.Info("runner has been shut down")
}

// buildRunID concatenates the configured run id prefix with a short random
// identifier so repeated runs stay distinguishable in the protocol.
func buildRunID(prefix string) string {
	id := uuid.New().String()[:8]
	if prefix != "" {
		return prefix + "_" + id
	}
	return id
}
