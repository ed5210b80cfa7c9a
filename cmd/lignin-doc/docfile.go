package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/lignin/pkg/persist"
	"github.com/chazu/lignin/pkg/store"
)

// open reads a document and wraps its state in a store configured from the
// loaded settings.
func (a *app) open(ctx context.Context, path string) (*persist.File, *store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := a.codec.Load(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Derived {
		a.logger.Info("part index rebuilt", "path", path, "skipped_roots", len(f.Skipped))
	}
	s := a.newStore()
	s.Load(f.State)
	return f, s, nil
}

func (a *app) newStore() *store.Store {
	opts := append(a.cfg.StoreOptions(), store.WithLogger(a.logger), store.WithMetrics(a.metrics))
	return store.New(opts...)
}

// save writes the store's state back in the file's own format.
func (a *app) save(path string, f *persist.File, s *store.Store) error {
	f.State = s.Snapshot()
	return a.write(path, f, f.Format)
}

func (a *app) write(path string, f *persist.File, format persist.Format) error {
	data, err := a.codec.Encode(f, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// formatFor picks the save format: an explicit flag wins, then the file
// extension, then the configured default.
func (a *app) formatFor(path, flag string) (persist.Format, error) {
	if flag != "" {
		return persist.ParseFormat(flag)
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		if f, err := persist.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return a.cfg.Format(), nil
}
