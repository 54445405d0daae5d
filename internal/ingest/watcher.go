package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures Watch.
type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit files already present under Roots
	SkipHidden  bool
	Debounce    time.Duration // coalesce write bursts on the same file
}

// Watch emits paths of supported documents created or rewritten under the
// configured roots until ctx is done. Both channels are closed on return.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("close watcher failed", "error", err)
			}
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		var (
			mu      sync.Mutex
			pending = map[string]*time.Timer{}
			wg      sync.WaitGroup
		)
		defer func() {
			mu.Lock()
			for p, t := range pending {
				if t.Stop() {
					wg.Done()
				}
				delete(pending, p)
			}
			mu.Unlock()
			wg.Wait()
		}()

		emit := func(path string) {
			select {
			case evCh <- path:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// New directories join the watch; Add fails harmlessly for files.
					_ = w.Add(e.Name)
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if !AllowedExt(filepath.Ext(e.Name)) || (cfg.SkipHidden && IsHidden(e.Name)) {
					continue
				}
				if cfg.Debounce <= 0 {
					emit(e.Name)
					continue
				}

				path := e.Name
				mu.Lock()
				if t, ok := pending[path]; ok {
					if t.Stop() {
						wg.Done()
					}
				}
				wg.Add(1)
				pending[path] = time.AfterFunc(cfg.Debounce, func() {
					defer wg.Done()
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					emit(path)
				})
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
