package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDelay coalesces bursts of filesystem events into one notification.
const watchDelay = 50 * time.Millisecond

// watch signals on the returned channel whenever the collection directory
// changes. The channel is closed once ctx is done or the watcher fails.
func (b *diskBackend) watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				b.logger.Warn("watcher close", zap.Error(err))
			}
		})
	}

	// The collection directory comes and goes with its first and last
	// document, so the base path is watched for it to (re)appear.
	base := filepath.Clean(b.basePath)
	if err := watcher.Add(base); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("watch %s: %w", base, err)
	}
	dir := filepath.Join(base, toCollection(collection))
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	out := make(chan struct{}, 1)
	logger := b.logger.With(zap.String("collection", collection))

	go func() {
		defer close(out)
		defer closeWatcher()

		send := func() {
			select {
			case out <- struct{}{}:
			default:
				// A notification is already pending; the reader re-lists
				// the whole collection anyway.
			}
		}
		throttle := newEventThrottle(watchDelay, send)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", zap.Error(err))
				throttle.Enqueue()
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Clean(evt.Name)
				switch {
				case name == dir:
					if evt.Op&fsnotify.Create == fsnotify.Create {
						if err := watcher.Add(dir); err != nil {
							logger.Warn("watch collection directory", zap.Error(err))
						}
					}
					throttle.Enqueue()
				case filepath.Dir(name) == dir:
					throttle.Enqueue()
				}
			}
		}
	}()

	return out, nil
}

// eventThrottle coalesces rapid change notifications so subscribers re-read
// once per burst of filesystem activity instead of on every single write.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	delay   time.Duration
	send    func()
	stopped bool
}

func newEventThrottle(delay time.Duration, send func()) *eventThrottle {
	return &eventThrottle{delay: delay, send: send}
}

func (t *eventThrottle) Enqueue() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, t.flush)
}

func (t *eventThrottle) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if t.stopped {
		return
	}
	t.send()
}

// Stop cancels any pending flush. No send happens after Stop returns.
func (t *eventThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
