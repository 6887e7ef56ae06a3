package persistence

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eternalApril/redismock/internal/storage"
	"go.uber.org/zap"
)

// Exporter is the read side of the store the snapshot needs
type Exporter interface {
	Export() storage.Dump
}

// Importer is the write side of the store used on load
type Importer interface {
	Import(d storage.Dump)
}

// Snapshotter writes and reads the full-keyspace JSON dump
type Snapshotter struct {
	filename string
	mu       sync.Mutex // serializes writers of the temp file
	logger   *zap.Logger
}

func NewSnapshotter(filename string, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{
		filename: filename,
		logger:   logger,
	}
}

// Filename returns the target path of the dump
func (s *Snapshotter) Filename() string {
	return s.filename
}

// SaveStore exports the store and saves the result
func (s *Snapshotter) SaveStore(db Exporter) error {
	return s.Save(db.Export())
}

// Save performs an atomic save operation: the dump is written to a temp file
// next to the target, synced, and renamed over it
func (s *Snapshotter) Save(dump storage.Dump) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	tmpFile := s.filename + ".tmp"

	if dir := filepath.Dir(s.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()          //nolint:errcheck
			os.Remove(tmpFile) //nolint:errcheck
		}
	}()

	writer := bufio.NewWriterSize(f, 1024*1024)
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")

	if err = enc.Encode(dump); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err = writer.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err = os.Rename(tmpFile, s.filename); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	s.logger.Info("snapshot saved successfully",
		zap.String("file", s.filename),
		zap.Int("keys", dump.KeyCount()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Load replaces the store content with the dump on disk.
// A missing file leaves the store empty and is not an error
func (s *Snapshotter) Load(db Importer) error {
	f, err := os.Open(s.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no snapshot found, starting empty", zap.String("file", s.filename))
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close() //nolint:errcheck

	start := time.Now()

	var dump storage.Dump
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&dump); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.filename, err)
	}

	db.Import(dump)

	s.logger.Info("snapshot loaded",
		zap.String("file", s.filename),
		zap.Int("keys", dump.KeyCount()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// RunAutoSave saves the store every interval until ctx is cancelled
func (s *Snapshotter) RunAutoSave(ctx context.Context, interval time.Duration, db Exporter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveStore(db); err != nil {
				s.logger.Error("auto-save snapshot failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
