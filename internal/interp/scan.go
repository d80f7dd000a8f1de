package interp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/platform"
)

// ScanTree registers every entry under dir as it exists on the local
// filesystem, the same way REGISTER records do for a trace. Symbolic links
// are recorded as symlinks with their stored target and never followed.
//
// The scan runs as its own session named "scan:<absolute dir>". PerTag
// counts entries by kind ("dir", "file", "symlink").
func (in *Interpreter) ScanTree(ctx context.Context, dir string, links platform.Symlinks) (Stats, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return Stats{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	opCtx := context.WithoutCancel(ctx)
	started := in.now()

	sess, err := in.store.StartSession(opCtx, "scan:"+root, started)
	if err != nil {
		return Stats{}, fmt.Errorf("scan %s: %w", root, err)
	}
	logger := in.logger.With("session", sess.ID, "dir", root)
	logger.Info("scan started")

	stats := Stats{SessionID: sess.ID, PerTag: make(map[string]int64)}
	cause := in.scan(ctx, opCtx, logger, root, links, &stats)
	return in.finish(opCtx, logger, sess, started, stats, cause, 0, stats.Records)
}

func (in *Interpreter) scan(ctx, opCtx context.Context, logger *slog.Logger, root string, links platform.Symlinks, stats *Stats) error {
	if err := in.store.Begin(opCtx); err != nil {
		return err
	}
	pathsBefore, _, err := in.maxIDs(opCtx)
	if err != nil {
		in.rollback(logger)
		return err
	}

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, err := in.register(opCtx, p, d, links)
		if err != nil {
			return err
		}
		stats.Records++
		stats.PerTag[kind]++
		return nil
	})

	pathsAfter, _, err := in.maxIDs(opCtx)
	if err != nil {
		in.rollback(logger)
		return errors.Join(walkErr, err)
	}
	stats.Paths = int64(pathsAfter - pathsBefore)

	if err := in.store.Commit(); err != nil {
		in.ns.Purge()
		stats.Records = 0
		return errors.Join(walkErr, err)
	}
	return walkErr
}

// register records one local entry and returns its kind. An unchanged
// symlink keeps its ID across rescans.
func (in *Interpreter) register(ctx context.Context, p string, d fs.DirEntry, links platform.Symlinks) (string, error) {
	recorded := filepath.ToSlash(p)
	if d.IsDir() {
		_, err := in.ns.AddPath(ctx, recorded, ir.PathTypeDir)
		return ir.PathTypeDir.String(), err
	}

	isLink, err := links.IsSymlink(p)
	if err != nil {
		return "", err
	}
	if !isLink {
		_, err := in.ns.AddPath(ctx, recorded, ir.PathTypeFile)
		return ir.PathTypeFile.String(), err
	}

	target, err := links.ReadSymlink(p)
	if err != nil {
		return "", err
	}
	if id, err := in.ns.LookupPath(ctx, recorded); err == nil {
		if rec, err := in.ns.Path(ctx, id); err == nil && rec.Type == ir.PathTypeSymlink && rec.Target == target {
			return ir.PathTypeSymlink.String(), nil
		}
	}
	_, err = in.ns.AddLink(ctx, target, recorded)
	return ir.PathTypeSymlink.String(), err
}
