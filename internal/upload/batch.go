package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Stats tracks batch progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesRejected int
	FilesErrored  int

	WorkoutIDs []string
}

// Batch sends every accepted file under a set of paths through a Flow,
// skipping files the state database has already seen.
type Batch struct {
	flow   *Flow
	state  *StateDB
	name   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// NewBatch creates a Batch. state may be nil to send everything. name, when
// set, overrides the derived workout name for every file.
func NewBatch(flow *Flow, state *StateDB, name string, dryRun bool, log *slog.Logger) *Batch {
	return &Batch{flow: flow, state: state, name: name, dryRun: dryRun, log: log}
}

// Run walks paths (files or directories) and uploads each accepted file.
// A failing file is counted and logged; the run continues with the next one.
func (b *Batch) Run(ctx context.Context, paths []string) (*Stats, error) {
	files, err := b.collect(paths)
	if err != nil {
		return &b.stats, err
	}
	b.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &b.stats, err
		}
		b.send(ctx, path)
	}
	return &b.stats, nil
}

func (b *Batch) send(ctx context.Context, path string) {
	file, err := ReadFile(path)
	if err != nil {
		b.log.Error("read failed", "path", path, "error", err)
		b.stats.FilesErrored++
		return
	}
	hash := HashContent(file.Content)
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	if b.state != nil {
		done, err := b.state.IsUploaded(key, hash)
		if err != nil {
			b.log.Warn("state lookup failed", "path", path, "error", err)
		}
		if done {
			b.log.Info("skipping, already uploaded", "path", path)
			b.stats.FilesSkipped++
			return
		}
	}

	if b.dryRun {
		if !b.flow.Accepts(file.Name) {
			b.stats.FilesRejected++
			return
		}
		b.log.Info("dry run", "path", path, "name", ChooseName(b.name, file.Name), "bytes", len(file.Content))
		b.stats.FilesUploaded++
		return
	}

	res, err := b.flow.Submit(ctx, file, b.name)
	if errors.Is(err, ErrUnsupportedFile) {
		b.stats.FilesRejected++
		return
	}
	if err != nil {
		b.log.Error("upload failed", "path", path, "message", res.Message, "error", err)
		b.stats.FilesErrored++
		return
	}

	b.stats.FilesUploaded++
	b.stats.WorkoutIDs = append(b.stats.WorkoutIDs, res.Workout.ID)
	if b.state != nil {
		if err := b.state.MarkUploaded(key, hash, res.Workout.ID); err != nil {
			b.log.Warn("state update failed", "path", path, "error", err)
		}
	}
}

// collect expands directories to the accepted files directly inside them,
// sorted by name. Explicit file arguments are kept as given.
func (b *Batch) collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var inDir []string
		for _, e := range entries {
			if e.IsDir() || !b.flow.Accepts(e.Name()) {
				continue
			}
			inDir = append(inDir, filepath.Join(p, e.Name()))
		}
		sort.Strings(inDir)
		files = append(files, inDir...)
	}
	return files, nil
}
