// Package streamql ties the catalog, binder, optimizer, executor builder
// and job supervisor into one entry point: Engine.Run accepts raw SQL
// and returns either a completed DDL result or a running job handle, the
// same split the teacher's own Engine.Query draws between a prepared
// statement and its execution.
package streamql

import (
	"context"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/config"
	"github.com/streamql/streamql/sql/analyzer"
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/planbuilder"
	"github.com/streamql/streamql/sql/planbuilder/ast"
	"github.com/streamql/streamql/sql/rowexec"
	"github.com/streamql/streamql/stream"
)

// ErrJobNotFound is returned by StopJob for an unknown or already
// finished job id.
var ErrJobNotFound = errors.NewKind("job not found: %s")

// Engine wires together one catalog, one shared e-graph, the binder,
// the (presently identity) optimizer, the executor builder and barrier
// plumbing, and the table of currently running jobs.
type Engine struct {
	cfg            config.Config
	catalog        *catalog.Database
	egraph         *plan.EGraph
	binder         *planbuilder.Binder
	optimizer      *analyzer.Optimizer
	execBuilder    *rowexec.Builder
	barrierManager *checkpoint.BarrierManager

	mu      sync.Mutex
	jobs    map[uuid.UUID]*stream.Job
	jobOrd  []uuid.UUID
	lastJob uuid.UUID
}

// New constructs an Engine from cfg, seeding a fresh catalog and egraph.
func New(cfg config.Config) *Engine {
	db := catalog.NewDatabase()
	eg := plan.NewEGraph(db)
	bm := checkpoint.NewBarrierManager()
	return &Engine{
		cfg:            cfg,
		catalog:        db,
		egraph:         eg,
		binder:         planbuilder.New(db, eg),
		optimizer:      analyzer.New(eg),
		execBuilder:    rowexec.NewBuilder(db, bm),
		barrierManager: bm,
		jobs:           make(map[uuid.UUID]*stream.Job),
	}
}

// RunResult reports the outcome of Run for a caller (the REPL) that
// needs to distinguish "this finished immediately" from "this is now a
// background job".
type RunResult struct {
	// JobID is set when sql started a background job (a streaming SELECT
	// or INSERT run); zero otherwise.
	JobID uuid.UUID
	// Jobs is set when sql was `show jobs;`.
	Jobs []uuid.UUID
	// Killed is set when sql was `kill job <id>;`.
	Killed bool
}

// Run parses, binds, optimizes and builds sql, then either executes DDL
// to completion inline or starts a background job and returns its id —
// the KillJob/ShowJobs REPL statements are dispatched here rather than
// re-matched by the caller, since ast.Parse has already classified them.
func (e *Engine) Run(ctx context.Context, sql string) (RunResult, error) {
	stmt, err := ast.Parse(sql)
	if err != nil {
		return RunResult{}, err
	}

	switch s := stmt.(type) {
	case ast.KillJob:
		return e.runKillJob(s)
	case ast.ShowJobs:
		return RunResult{Jobs: e.RunningJobIDs()}, nil
	}

	rootID, err := e.binder.Bind(stmt)
	if err != nil {
		return RunResult{}, err
	}
	rootID = e.optimizer.Optimize(rootID)
	tree := plan.NewExtractor(e.egraph).FindBest(rootID)

	exec, err := e.execBuilder.Build(e.egraph, tree)
	if err != nil {
		return RunResult{}, err
	}

	if rowexec.IsDDL(tree) {
		// DDL runs to completion inline with no job handle — the caller
		// only cares that the catalog mutation took effect, which a
		// single synchronous drain accomplishes here.
		for res := range exec(ctx) {
			if res.Err != nil {
				return RunResult{}, res.Err
			}
		}
		return RunResult{}, nil
	}

	svc := checkpoint.NewBarrierService(e.barrierManager)
	job := stream.Run(ctx, runFunc(exec), svc, e.cfg.CheckpointInterval)

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.jobOrd = append(e.jobOrd, job.ID)
	e.lastJob = job.ID
	e.mu.Unlock()

	go e.reap(job)

	return RunResult{JobID: job.ID}, nil
}

// runFunc adapts a rowexec.Executor to stream.RunFunc — the two are
// structurally identical function types, so no wrapping is strictly
// required, but naming the conversion documents the boundary between
// the two packages.
func runFunc(exec rowexec.Executor) stream.RunFunc {
	return stream.RunFunc(exec)
}

// reap removes a job from the registry once it has ended (with the
// barrier service attached, after StopJob or cancellation of the ctx
// passed to Run), logging its outcome the way the teacher's connection handler
// logs a closed session.
func (e *Engine) reap(job *stream.Job) {
	err := job.Wait()
	log := logrus.WithField("job_id", job.ID.String())
	if err != nil {
		log.WithError(err).Warn("job exited with error")
	} else {
		log.Info("job exited")
	}
	e.mu.Lock()
	delete(e.jobs, job.ID)
	e.mu.Unlock()
}

func (e *Engine) runKillJob(s ast.KillJob) (RunResult, error) {
	id, err := uuid.FromString(s.JobID)
	if err != nil {
		return RunResult{}, planbuilder.ErrInvalidJobID.New(s.JobID)
	}
	if err := e.StopJob(id); err != nil {
		return RunResult{}, err
	}
	return RunResult{Killed: true}, nil
}

// StopJob cancels a running job and waits for it to unwind, returning
// any aggregated execution/checkpoint error it produced.
func (e *Engine) StopJob(id uuid.UUID) error {
	e.mu.Lock()
	job, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return ErrJobNotFound.New(id.String())
	}
	return job.Stop()
}

// RunningJobIDs returns currently running job ids, oldest first.
func (e *Engine) RunningJobIDs() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]uuid.UUID, 0, len(e.jobs))
	for _, id := range e.jobOrd {
		if _, ok := e.jobs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// LastRunningJobID returns the most recently started job's id, and
// whether it is still running — Ctrl-C in the REPL cancels this one.
func (e *Engine) LastRunningJobID() (uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastJob == uuid.Nil {
		return uuid.UUID{}, false
	}
	_, ok := e.jobs[e.lastJob]
	return e.lastJob, ok
}

// Catalog exposes the underlying catalog for callers (tests, REPL
// introspection commands) that need direct read access.
func (e *Engine) Catalog() *catalog.Database { return e.catalog }
