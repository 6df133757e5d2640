// Package snapshot exports and imports the ledger state as JSON lines.
//
// A snapshot starts with one meta record, followed by one task record per
// catalog entry and one history record per date:
//
//	{"record_type":"meta","snapshot_id":"...","exported_at":"...","version":1}
//	{"record_type":"task","id":1,"name":"Fajr Prayer",...}
//	{"record_type":"history","date":"2024-01-10","completed":{"1":true}}
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ldi/wird/internal/store"
	"github.com/ldi/wird/pkg/models"
)

const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

const (
	recordMeta    = "meta"
	recordTask    = "task"
	recordHistory = "history"
)

type metaRecord struct {
	RecordType string    `json:"record_type"`
	SnapshotID string    `json:"snapshot_id"`
	ExportedAt time.Time `json:"exported_at"`
	Version    int       `json:"version"`
}

type taskRecord struct {
	RecordType string `json:"record_type"`
	models.Task
}

type historyRecord struct {
	RecordType string       `json:"record_type"`
	Date       string       `json:"date"`
	Completed  map[int]bool `json:"completed"`
}

// Meta describes a written or imported snapshot.
type Meta struct {
	SnapshotID string
	ExportedAt time.Time
	Tasks      int
	Dates      int
}

// Export reads both ledger keys from st and writes them to path atomically.
// A missing catalog exports the default tasks; missing history exports no
// history records.
func Export(ctx context.Context, st store.Store, path string) (Meta, error) {
	tasks, err := readTasks(ctx, st)
	if err != nil {
		return Meta{}, err
	}
	history, err := readHistory(ctx, st)
	if err != nil {
		return Meta{}, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Meta{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return Meta{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	meta := metaRecord{
		RecordType: recordMeta,
		SnapshotID: uuid.New().String(),
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Version:    Version,
	}

	w := bufio.NewWriter(tempFile)
	enc := json.NewEncoder(w)
	if err := enc.Encode(meta); err != nil {
		return Meta{}, fmt.Errorf("failed to write meta record: %w", err)
	}
	for _, t := range tasks {
		if err := enc.Encode(taskRecord{RecordType: recordTask, Task: t}); err != nil {
			return Meta{}, fmt.Errorf("failed to write task %d: %w", t.ID, err)
		}
	}
	dates := history.Dates()
	for _, d := range dates {
		if err := enc.Encode(historyRecord{RecordType: recordHistory, Date: d, Completed: history[d]}); err != nil {
			return Meta{}, fmt.Errorf("failed to write history %s: %w", d, err)
		}
	}

	if err := w.Flush(); err != nil {
		return Meta{}, fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return Meta{}, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return Meta{}, fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return Meta{}, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return Meta{SnapshotID: meta.SnapshotID, ExportedAt: meta.ExportedAt, Tasks: len(tasks), Dates: len(dates)}, nil
}

// Import replaces both ledger keys in st with the contents of the snapshot
// at path. Nothing is written unless the whole file decodes.
func Import(ctx context.Context, st store.Store, path string) (Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	var meta Meta
	tasks := []models.Task{}
	seen := map[int]bool{}
	history := models.History{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return Meta{}, fmt.Errorf("line %d: failed to unmarshal base record: %w", lineNo, err)
		}

		switch base.RecordType {
		case recordMeta:
			var m metaRecord
			if err := json.Unmarshal(line, &m); err != nil {
				return Meta{}, fmt.Errorf("line %d: failed to unmarshal meta: %w", lineNo, err)
			}
			if m.Version > Version {
				return Meta{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
			}
			meta.SnapshotID = m.SnapshotID
			meta.ExportedAt = m.ExportedAt
		case recordTask:
			var t taskRecord
			if err := json.Unmarshal(line, &t); err != nil {
				return Meta{}, fmt.Errorf("line %d: failed to unmarshal task: %w", lineNo, err)
			}
			if seen[t.ID] {
				return Meta{}, fmt.Errorf("line %d: duplicate task id %d", lineNo, t.ID)
			}
			seen[t.ID] = true
			tasks = append(tasks, t.Task.WithDefaults())
		case recordHistory:
			var h historyRecord
			if err := json.Unmarshal(line, &h); err != nil {
				return Meta{}, fmt.Errorf("line %d: failed to unmarshal history: %w", lineNo, err)
			}
			if _, err := models.ParseDate(h.Date); err != nil {
				return Meta{}, fmt.Errorf("line %d: invalid history date %q", lineNo, h.Date)
			}
			if h.Completed == nil {
				h.Completed = map[int]bool{}
			}
			history[h.Date] = h.Completed
		default:
			return Meta{}, fmt.Errorf("line %d: unknown record type %q", lineNo, base.RecordType)
		}
	}
	if err := scanner.Err(); err != nil {
		return Meta{}, fmt.Errorf("scanner error: %w", err)
	}

	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to encode tasks: %w", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to encode history: %w", err)
	}
	if err := writeBoth(ctx, st, string(tasksJSON), string(historyJSON)); err != nil {
		return Meta{}, err
	}

	meta.Tasks = len(tasks)
	meta.Dates = len(history)
	return meta, nil
}

func writeBoth(ctx context.Context, st store.Store, tasks, history string) error {
	if b, ok := st.(store.BatchStore); ok {
		return b.SetMany(ctx, map[string]string{store.KeyTasks: tasks, store.KeyHistory: history})
	}
	if err := st.Set(ctx, store.KeyTasks, tasks); err != nil {
		return err
	}
	return st.Set(ctx, store.KeyHistory, history)
}

// AutoExport returns a change hook that exports a snapshot to path.
// Export failures are logged and never fail the write that triggered them.
func AutoExport(st store.Store, path string, log *zap.Logger) func(ctx context.Context) {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context) {
		if _, err := Export(ctx, st, path); err != nil {
			log.Warn("auto snapshot failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func readTasks(ctx context.Context, st store.Store) ([]models.Task, error) {
	raw, err := st.Get(ctx, store.KeyTasks)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultTasks(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func readHistory(ctx context.Context, st store.Store) (models.History, error) {
	raw, err := st.Get(ctx, store.KeyHistory)
	if errors.Is(err, store.ErrNotFound) {
		return models.History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var history models.History
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return history, nil
}
