// Package interp applies a decoded trace to the build graph.
//
// Records are applied strictly in stream order inside one store session.
// The trace's process numbers are resolved through a ProcessBinding that is
// created fresh for every ingestion. When ingestion stops early, because the
// trace is damaged or the context is cancelled, everything up to the last
// complete record is committed and the session is marked failed or
// cancelled.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/buildml/internal/actions"
	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/logging"
	"github.com/roach88/buildml/internal/metrics"
	"github.com/roach88/buildml/internal/namespace"
	"github.com/roach88/buildml/internal/store"
	"github.com/roach88/buildml/internal/tracefile"
)

// DefaultProgressEvery is how many records pass between debug progress logs.
const DefaultProgressEvery = 100000

// Stats summarizes one ingestion.
type Stats struct {
	SessionID        string           `json:"session_id"`
	Records          int64            `json:"records"`
	PerTag           map[string]int64 `json:"per_tag"`
	Actions          int64            `json:"actions"`  // actions created
	Paths            int64            `json:"paths"`    // path IDs allocated
	Accesses         int64            `json:"accesses"` // access records applied
	UnknownProcesses int64            `json:"unknown_processes"`
	Skipped          int64            `json:"skipped"` // records that could not apply to the graph
	Bytes            int64            `json:"bytes"`
}

// Interpreter drives the namespace and action graph from trace records.
type Interpreter struct {
	store   *store.Store
	ns      *namespace.Namespace
	graph   *actions.Graph
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	bufferSize    int
	progressEvery int64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithMetrics records ingestion counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Interpreter) { in.metrics = m }
}

// WithClock overrides the wall clock used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// WithBufferSize sets the trace reader chunk size.
func WithBufferSize(n int) Option {
	return func(in *Interpreter) { in.bufferSize = n }
}

// WithProgressEvery sets how many records pass between progress logs.
// Zero disables progress logging.
func WithProgressEvery(n int64) Option {
	return func(in *Interpreter) { in.progressEvery = n }
}

// New creates an Interpreter. ns and graph must be backed by st.
func New(st *store.Store, ns *namespace.Namespace, graph *actions.Graph, opts ...Option) *Interpreter {
	in := &Interpreter{
		store:         st,
		ns:            ns,
		graph:         graph,
		logger:        logging.NewDiscardLogger(),
		now:           time.Now,
		bufferSize:    tracefile.DefaultBufferSize,
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestFile ingests the trace at path, raw or gzip-compressed.
func (in *Interpreter) IngestFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return in.Ingest(ctx, path, f)
}

// Ingest applies every record of src under one session named name.
//
// Cancellation is checked between records. On cancellation or a fatal
// decode error the applied prefix is committed and an *IngestError is
// returned together with the stats of that prefix.
func (in *Interpreter) Ingest(ctx context.Context, name string, src io.Reader) (Stats, error) {
	// Store work must not be interrupted mid-record; ctx is only consulted
	// between records.
	opCtx := context.WithoutCancel(ctx)
	started := in.now()

	sess, err := in.store.StartSession(opCtx, name, started)
	if err != nil {
		return Stats{}, fmt.Errorf("ingest %s: %w", name, err)
	}
	logger := in.logger.With("session", sess.ID, "trace", name)
	logger.Info("ingest started")

	stats := Stats{SessionID: sess.ID, PerTag: make(map[string]int64)}
	r, cause := in.run(ctx, opCtx, logger, src, &stats)

	var offset int64
	if r != nil {
		offset = r.Offset()
	}
	return in.finish(opCtx, logger, sess, started, stats, cause, offset, stats.Records+1)
}

// finish records the session outcome and wraps cause, if any, in an
// *IngestError positioned at offset and record.
func (in *Interpreter) finish(ctx context.Context, logger *slog.Logger, sess ir.Session, started time.Time, stats Stats, cause error, offset, record int64) (Stats, error) {
	sess.Records = stats.Records
	sess.Status = ir.SessionComplete
	if cause != nil {
		sess.Status = ir.SessionFailed
		if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
			sess.Status = ir.SessionCancelled
		}
		sess.Error = cause.Error()
	}
	finished := in.now()
	sess.FinishedAt = finished.Unix()
	if err := in.store.FinishSession(ctx, sess); err != nil {
		logger.Error("record session outcome", "error", err)
		if cause == nil {
			cause = err
		}
	}
	in.metrics.SessionFinished(string(sess.Status), finished.Sub(started).Seconds())

	if cause == nil {
		logger.Info("ingest finished",
			"records", stats.Records,
			"actions", stats.Actions,
			"paths", stats.Paths,
			"unknown_processes", stats.UnknownProcesses,
		)
		return stats, nil
	}

	logger.Warn("ingest stopped early", "status", sess.Status, "records", stats.Records, "error", cause)
	return stats, &IngestError{Trace: sess.TraceName, Offset: offset, Record: record, Err: cause}
}

// run applies records inside a store transaction and commits whatever was
// applied. It returns the reader for error positions and the reason it
// stopped early, if any.
func (in *Interpreter) run(ctx, opCtx context.Context, logger *slog.Logger, src io.Reader, stats *Stats) (*tracefile.Reader, error) {
	r, err := tracefile.Open(src, tracefile.WithBufferSize(in.bufferSize))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := in.store.Begin(opCtx); err != nil {
		return r, err
	}

	pathsBefore, actionsBefore, err := in.maxIDs(opCtx)
	if err != nil {
		in.rollback(logger)
		return r, err
	}

	binding := NewProcessBinding()
	var cause error
	for {
		if err := ctx.Err(); err != nil {
			cause = err
			break
		}
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cause = err
			break
		}
		if err := in.applyRecord(opCtx, logger, binding, rec, stats); err != nil {
			cause = fmt.Errorf("apply %s: %w", rec, err)
			break
		}
		stats.Records++
		stats.PerTag[rec.Tag.String()]++
		in.metrics.RecordApplied(rec.Tag.String())
		if in.progressEvery > 0 && stats.Records%in.progressEvery == 0 {
			logger.Debug("ingest progress", "records", stats.Records, "offset", r.Offset())
		}
	}
	stats.Bytes = r.Offset()
	in.metrics.BytesRead(stats.Bytes)

	pathsAfter, actionsAfter, err := in.maxIDs(opCtx)
	if err != nil {
		in.rollback(logger)
		return r, errors.Join(cause, err)
	}
	stats.Paths = int64(pathsAfter - pathsBefore)
	stats.Actions = int64(actionsAfter - actionsBefore)

	if err := in.store.Commit(); err != nil {
		in.ns.Purge()
		stats.Records = 0
		return r, errors.Join(cause, err)
	}
	return r, cause
}

func (in *Interpreter) rollback(logger *slog.Logger) {
	in.ns.Purge()
	if err := in.store.Rollback(); err != nil {
		logger.Error("rollback session", "error", err)
	}
}

func (in *Interpreter) maxIDs(ctx context.Context) (ir.PathID, ir.ActionID, error) {
	p, err := in.store.MaxPathID(ctx)
	if err != nil {
		return 0, 0, err
	}
	a, err := in.store.MaxActionID(ctx)
	if err != nil {
		return 0, 0, err
	}
	return p, a, nil
}

const recordSavepoint = "record"

// applyRecord applies one record atomically. A record that is skipped or
// fails leaves no rows, cache entries or counters behind.
func (in *Interpreter) applyRecord(ctx context.Context, logger *slog.Logger, b *ProcessBinding, rec tracefile.Record, stats *Stats) error {
	if err := in.store.Savepoint(ctx, recordSavepoint); err != nil {
		return err
	}
	before := *stats
	err := in.apply(ctx, logger, b, rec, stats)
	if err == nil {
		return in.store.Release(ctx, recordSavepoint)
	}

	if rbErr := in.store.RollbackTo(ctx, recordSavepoint); rbErr != nil {
		return errors.Join(err, rbErr)
	}
	in.ns.Purge()
	*stats = before

	var skip *skipError
	if errors.As(err, &skip) {
		stats.Skipped++
		logger.Warn("record skipped", "record", rec.String(), "reason", skip.reason)
		return nil
	}
	return err
}

// skipError marks a record the graph cannot represent. It is reported and
// ingest moves on.
type skipError struct {
	reason error
}

func (e *skipError) Error() string { return "skip: " + e.reason.Error() }

func (e *skipError) Unwrap() error { return e.reason }

// apply performs the graph mutation for one record.
func (in *Interpreter) apply(ctx context.Context, logger *slog.Logger, b *ProcessBinding, rec tracefile.Record, stats *Stats) error {
	switch rec.Tag {
	case tracefile.TagRegister:
		_, err := in.ns.GetPath(ctx, rec.Path)
		return err

	case tracefile.TagRead, tracefile.TagWrite:
		typ := ir.AccessRead
		if rec.Tag == tracefile.TagWrite {
			typ = ir.AccessWrite
		}
		path, err := in.ns.GetPath(ctx, rec.Path)
		if err != nil {
			return err
		}
		return in.access(ctx, logger, b, rec.Process, path, typ, stats)

	case tracefile.TagRemove:
		if namespace.Normalize(rec.Path) == "/" {
			return &skipError{reason: namespace.ErrRoot}
		}
		path, err := in.ns.GetPath(ctx, rec.Path)
		if err != nil {
			return err
		}
		if err := in.access(ctx, logger, b, rec.Process, path, ir.AccessWrite, stats); err != nil {
			return err
		}
		_, err = in.ns.Remove(ctx, rec.Path)
		return err

	case tracefile.TagRename:
		path, err := in.ns.Rename(ctx, rec.Path, rec.NewPath)
		switch {
		case errors.Is(err, namespace.ErrNotFound):
			// The tracer never reported the source; start tracking at the destination.
			if path, err = in.ns.GetPath(ctx, rec.NewPath); err != nil {
				return err
			}
		case errors.Is(err, namespace.ErrRoot), errors.Is(err, namespace.ErrCycle):
			return &skipError{reason: err}
		case err != nil:
			return err
		}
		return in.access(ctx, logger, b, rec.Process, path, ir.AccessWrite, stats)

	case tracefile.TagNewLink:
		path, err := in.ns.AddLink(ctx, rec.Path, rec.NewPath)
		if errors.Is(err, namespace.ErrRoot) {
			return &skipError{reason: err}
		}
		if err != nil {
			return err
		}
		return in.access(ctx, logger, b, rec.Process, path, ir.AccessWrite, stats)

	case tracefile.TagNewProgram:
		parent, ok := b.Lookup(rec.Parent)
		if !ok {
			parent = in.graph.Root()
			if rec.Parent != 0 {
				logger.Debug("parent process not bound, using root", "process", rec.Process, "parent", rec.Parent)
			}
		}
		id, err := in.graph.NewAction(ctx, parent, rec.Argv)
		if err != nil {
			return err
		}
		b.Bind(rec.Process, id)
		return nil
	}

	return fmt.Errorf("unhandled tag %s", rec.Tag)
}

// access records an edge from the process's action to path, creating a
// synthetic action the first time an unbound process shows up.
func (in *Interpreter) access(ctx context.Context, logger *slog.Logger, b *ProcessBinding, process int32, path ir.PathID, typ ir.AccessType, stats *Stats) error {
	action, ok := b.Lookup(process)
	if !ok {
		id, err := in.graph.NewUnknownAction(ctx, process)
		if err != nil {
			return err
		}
		b.Bind(process, id)
		action = id
		stats.UnknownProcesses++
		in.metrics.UnknownProcess()
		logger.Warn("access from unknown process, attaching to synthetic action", "process", process, "action", id)
	}
	if err := in.graph.AddAccess(ctx, action, path, typ); err != nil {
		return err
	}
	stats.Accesses++
	return nil
}

