package manifest

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/pkg/types"
)

// Registry is an in-process, hot-reloadable cache of every vertical's
// ToolManifest. Tool dispatch must never block on disk I/O, so every stage
// reads through Get, and a background watcher keeps the cache current.
type Registry struct {
	dir    string
	logger *observability.Logger

	mu        sync.RWMutex
	manifests map[types.Vertical]*types.ToolManifest

	watcher  *fsnotify.Watcher
	cronJob  *cron.Cron
	debounce time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry loads every manifest under dir and starts a fsnotify watcher
// (debounced by debounce) plus, if rescanInterval > 0, a periodic full
// rescan as a backstop for filesystems where inotify events are unreliable.
func NewRegistry(dir string, debounce, rescanInterval time.Duration, logger *observability.Logger) (*Registry, error) {
	manifests, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	r := &Registry{
		dir:       dir,
		logger:    logger,
		manifests: manifests,
		watcher:   watcher,
		debounce:  debounce,
		stop:      make(chan struct{}),
	}

	r.wg.Add(1)
	go r.watchLoop()

	if rescanInterval > 0 {
		r.cronJob = cron.New()
		spec := "@every " + rescanInterval.String()
		if _, err := r.cronJob.AddFunc(spec, r.reload); err != nil {
			r.logger.Warn(context.Background(), "manifest registry: failed to schedule periodic rescan", "error", err)
		} else {
			r.cronJob.Start()
		}
	}

	return r, nil
}

// Get returns the current manifest for a vertical and whether it exists.
func (r *Registry) Get(v types.Vertical) (*types.ToolManifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[v]
	return m, ok
}

// Close stops the watcher and the periodic rescan job.
func (r *Registry) Close() error {
	close(r.stop)
	err := r.watcher.Close()
	if r.cronJob != nil {
		r.cronJob.Stop()
	}
	r.wg.Wait()
	return err
}

func (r *Registry) watchLoop() {
	defer r.wg.Done()
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-r.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
			timerC = timer.C
		case <-timerC:
			r.reload()
			timerC = nil
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn(context.Background(), "manifest registry: watcher error", "error", err)
		}
	}
}

func (r *Registry) reload() {
	manifests, err := LoadDir(r.dir)
	if err != nil {
		r.logger.Error(context.Background(), "manifest registry: reload failed, keeping previous manifests", "error", err)
		return
	}
	r.mu.Lock()
	r.manifests = manifests
	r.mu.Unlock()
	r.logger.Info(context.Background(), "manifest registry: reloaded", "verticals", len(manifests))
}
