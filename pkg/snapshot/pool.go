package snapshot

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gnana997/uifind/pkg/locator"
	"github.com/gnana997/uifind/pkg/util"
)

// QueryJob is one snapshot file to evaluate a query against.
type QueryJob struct {
	SnapshotPath string
	Query        string
	JobID        int
}

// Match describes one node a query resolved to.
type Match struct {
	// Type is the node's primary identifier; Display its display name.
	Type    string `json:"type,omitempty"`
	Display string `json:"display,omitempty"`

	// Synthesized is a minimal stable query addressing exactly this
	// node, empty when none exists (overlay nodes, unnamed roots).
	Synthesized string `json:"synthesized,omitempty"`
}

// QueryResult is the outcome of evaluating a query against one snapshot.
type QueryResult struct {
	SnapshotPath string
	Query        string
	Matches      []Match
	JobID        int
}

// QueryError reports a snapshot that could not be evaluated.
type QueryError struct {
	SnapshotPath string
	Error        error
}

// QueryPool evaluates locator queries across many snapshot files in
// parallel. Each worker builds its own tree through the shared loader, so
// no tree is ever touched by two goroutines.
//
// Lifecycle mirrors the submit/collect pattern:
//
//	pool := NewQueryPool(0, loader, logger)
//	pool.Start()
//	for i, path := range paths {
//	    pool.Submit(QueryJob{SnapshotPath: path, Query: q, JobID: i})
//	}
//	pool.FinishSubmitting()
//	// Collect len(paths) messages from Results()/Errors(), then Stop().
//
// EvaluateAll wraps all of the above for the common one-shot case.
type QueryPool struct {
	numWorkers int
	jobs       chan QueryJob
	results    chan QueryResult
	errors     chan QueryError
	wg         sync.WaitGroup
	loader     *Loader
	logger     *slog.Logger

	// Lifecycle management
	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	// Statistics
	jobsSubmitted atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
}

// NewQueryPool creates a query pool. numWorkers 0 auto-detects from the
// machine's core count.
func NewQueryPool(numWorkers int, loader *Loader, logger *slog.Logger) *QueryPool {
	if numWorkers <= 0 {
		numWorkers = util.GetOptimalPoolSize()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &QueryPool{
		numWorkers: numWorkers,
		jobs:       make(chan QueryJob, numWorkers*2), // Buffered for smooth pipeline
		results:    make(chan QueryResult, numWorkers),
		errors:     make(chan QueryError, numWorkers),
		loader:     loader,
		logger:     logger,
	}
}

// Start spawns the worker goroutines. Must be called before Submit.
func (qp *QueryPool) Start() {
	if !qp.started.CompareAndSwap(false, true) {
		qp.logger.Warn("query pool already started")
		return
	}

	qp.logger.Debug("starting query pool", "workers", qp.numWorkers)

	for i := 0; i < qp.numWorkers; i++ {
		qp.wg.Add(1)
		go qp.worker(i)
	}
}

// worker drains the jobs channel until it is closed.
func (qp *QueryPool) worker(id int) {
	defer qp.wg.Done()

	for job := range qp.jobs {
		qp.logger.Debug("worker received job", "worker_id", id, "snapshot", job.SnapshotPath, "job_id", job.JobID)
		qp.processJob(job)
	}
}

// processJob evaluates one query against one snapshot.
func (qp *QueryPool) processJob(job QueryJob) {
	tree, err := qp.loader.Load(job.SnapshotPath)
	if err != nil {
		qp.jobsFailed.Add(1)
		qp.errors <- QueryError{
			SnapshotPath: job.SnapshotPath,
			Error:        fmt.Errorf("failed to load snapshot: %w", err),
		}
		return
	}

	loc := locator.New(tree, qp.logger)
	nodes := loc.Resolve(job.Query)

	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		m := Match{
			Type:    n.PrimaryIdentifier(),
			Display: n.DisplayName(),
		}
		if q, ok := loc.Synthesize(n); ok {
			m.Synthesized = q
		}
		matches = append(matches, m)
	}

	qp.jobsProcessed.Add(1)
	qp.results <- QueryResult{
		SnapshotPath: job.SnapshotPath,
		Query:        job.Query,
		Matches:      matches,
		JobID:        job.JobID,
	}
}

// Submit enqueues a job. Blocks when the jobs channel is full.
func (qp *QueryPool) Submit(job QueryJob) error {
	if qp.stopped.Load() {
		return fmt.Errorf("query pool is stopped")
	}

	qp.jobsSubmitted.Add(1)
	qp.jobs <- job
	return nil
}

// Results returns the results channel.
func (qp *QueryPool) Results() <-chan QueryResult {
	return qp.results
}

// Errors returns the errors channel.
func (qp *QueryPool) Errors() <-chan QueryError {
	return qp.errors
}

// FinishSubmitting closes the jobs channel so workers exit once it drains.
// Must be called after the last Submit. Idempotent.
func (qp *QueryPool) FinishSubmitting() {
	if qp.jobsClosed.CompareAndSwap(false, true) {
		close(qp.jobs)
		qp.logger.Debug("jobs channel closed", "total_submitted", qp.jobsSubmitted.Load())
	}
}

// Wait blocks until all workers have finished. Call after FinishSubmitting.
func (qp *QueryPool) Wait() {
	qp.wg.Wait()
}

// Stop shuts the pool down: closes the jobs channel if still open, waits
// for in-flight jobs, then closes the result and error channels.
// Idempotent.
func (qp *QueryPool) Stop() {
	if !qp.stopped.CompareAndSwap(false, true) {
		return
	}

	if qp.jobsClosed.CompareAndSwap(false, true) {
		close(qp.jobs)
	}

	qp.wg.Wait()

	close(qp.results)
	close(qp.errors)

	qp.logger.Debug("query pool stopped",
		"jobs_submitted", qp.jobsSubmitted.Load(),
		"jobs_processed", qp.jobsProcessed.Load(),
		"jobs_failed", qp.jobsFailed.Load())
}

// EvaluateAll runs query against every path and collects the outcomes,
// sorted by snapshot path. It drives the full pool lifecycle; the pool
// cannot be reused afterwards.
func (qp *QueryPool) EvaluateAll(paths []string, query string) ([]QueryResult, []QueryError) {
	qp.Start()

	go func() {
		for i, path := range paths {
			if err := qp.Submit(QueryJob{SnapshotPath: path, Query: query, JobID: i}); err != nil {
				return
			}
		}
		qp.FinishSubmitting()
	}()

	var results []QueryResult
	var errs []QueryError
	for received := 0; received < len(paths); received++ {
		select {
		case r := <-qp.results:
			results = append(results, r)
		case e := <-qp.errors:
			errs = append(errs, e)
		}
	}

	qp.Stop()

	sort.Slice(results, func(i, j int) bool { return results[i].SnapshotPath < results[j].SnapshotPath })
	sort.Slice(errs, func(i, j int) bool { return errs[i].SnapshotPath < errs[j].SnapshotPath })
	return results, errs
}

// QueryPoolStats contains query pool statistics.
type QueryPoolStats struct {
	NumWorkers    int
	JobsSubmitted int64
	JobsProcessed int64
	JobsFailed    int64
	QueueLength   int
}

// GetStats returns current pool statistics.
func (qp *QueryPool) GetStats() QueryPoolStats {
	return QueryPoolStats{
		NumWorkers:    qp.numWorkers,
		JobsSubmitted: qp.jobsSubmitted.Load(),
		JobsProcessed: qp.jobsProcessed.Load(),
		JobsFailed:    qp.jobsFailed.Load(),
		QueueLength:   len(qp.jobs),
	}
}
