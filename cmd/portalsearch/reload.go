package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/config"
)

// reloadDelay lets editors finish replacing a file before it is re-read.
const reloadDelay = 200 * time.Millisecond

// watchFiles reloads search settings when the config file changes (or on SIGHUP)
// and re-reads layer catalogs when theirs change. It returns when ctx ends.
func (a *app) watchFiles(ctx context.Context, configPath string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warn("failed to create file watcher", zap.Error(err))
		watcher = nil
	} else {
		defer func() { _ = watcher.Close() }()
		for _, path := range a.watchedFiles(configPath) {
			if err := watcher.Add(path); err != nil {
				a.logger.Warn("failed to watch file", zap.String("path", path), zap.Error(err))
				continue
			}
			a.logger.Info("Watching file for changes", zap.String("path", path))
		}
	}

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if watcher != nil {
		fsEvents, fsErrors = watcher.Events, watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			a.logger.Info("Received SIGHUP, reloading configuration")
			a.reloadSettings(configPath)
		case err, ok := <-fsErrors:
			if !ok {
				return
			}
			a.logger.Warn("file watcher error", zap.Error(err))
		case event, ok := <-fsEvents:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			time.Sleep(reloadDelay)
			path := filepath.Clean(event.Name)
			if _, err := os.Stat(path); err != nil {
				a.logger.Warn("watched file is gone, skipping reload", zap.String("path", path))
				continue
			}
			// Atomic replacement drops the inotify watch on the old inode.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				_ = watcher.Add(path)
			}
			a.reloadPath(configPath, path)
		}
	}
}

func (a *app) watchedFiles(configPath string) []string {
	paths := []string{filepath.Clean(configPath)}
	for path := range a.catalogs {
		paths = append(paths, filepath.Clean(path))
	}
	return paths
}

func (a *app) reloadPath(configPath, path string) {
	if path == filepath.Clean(configPath) {
		a.reloadSettings(configPath)
		return
	}
	for catalogPath := range a.catalogs {
		if filepath.Clean(catalogPath) != path {
			continue
		}
		if _, err := a.reloadCatalog(catalogPath); err != nil {
			a.logger.Error("catalog reload failed, keeping previous version",
				zap.String("path", catalogPath), zap.Error(err))
			return
		}
		a.logger.Info("Catalog reloaded", zap.String("path", catalogPath))
	}
}

// reloadSettings applies the search section of a changed config file to new
// sessions. Other sections need a restart.
func (a *app) reloadSettings(configPath string) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		a.logger.Error("config reload failed, keeping previous settings", zap.Error(err))
		return
	}
	a.sessions.SetSettings(searchSettings(cfg.Search, a.labels))
	a.logger.Info("Search settings reloaded",
		zap.Strings("searchResultOrder", cfg.Search.SearchResultOrder),
		zap.Int("recommendedListLength", cfg.Search.RecommendedListLength),
		zap.Bool("selectRandomHits", cfg.Search.SelectRandomHits),
	)
}
