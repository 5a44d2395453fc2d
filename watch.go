// FILE: lixenwraith/printercfg/watch.go
package printercfg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Events sent to subscribers in place of a changed path.
const (
	EventFileDeleted = "file_deleted"
	EventReloadError = "reload_error"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce delays a reload until events stop arriving for this long
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int

	// Clock drives the debounce timer; nil uses the real clock
	Clock clockwork.Clock
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:    DefaultDebounce,
		MaxWatchers: DefaultMaxWatchers,
	}
}

// watcher reloads one file on change and fans out the changed paths
type watcher struct {
	mu          sync.Mutex
	fs          *fsnotify.Watcher
	opts        WatchOptions
	filePath    string
	cancel      context.CancelFunc
	done        chan struct{}
	subscribers map[int64]chan string
	nextID      int64
	closed      bool
	logger      *zap.Logger
}

// AutoUpdate enables automatic reloading of the loaded file when it changes
func (c *Config) AutoUpdate() error {
	return c.AutoUpdateWithOptions(DefaultWatchOptions())
}

// AutoUpdateWithOptions enables automatic reloading with custom options.
// The parent directory is watched so atomic replacements are seen.
func (c *Config) AutoUpdateWithOptions(opts WatchOptions) error {
	if opts.Debounce < MinDebounce {
		opts.Debounce = MinDebounce
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.configFilePath == "" {
		return fmt.Errorf("no configuration file loaded")
	}
	filePath, err := filepath.Abs(c.configFilePath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path '%s': %w", c.configFilePath, err)
	}

	if c.watcher != nil {
		if c.watcher.filePath == filePath {
			return nil
		}
		// Stopping waits for the loop, which may need the config lock
		old := c.watcher
		c.watcher = nil
		c.mutex.Unlock()
		old.stop()
		c.mutex.Lock()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(filePath)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch '%s': %w", filepath.Dir(filePath), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		fs:          fsw,
		opts:        opts,
		filePath:    filePath,
		cancel:      cancel,
		done:        make(chan struct{}),
		subscribers: make(map[int64]chan string),
		logger:      c.logger,
	}
	c.watcher = w

	go w.run(ctx, c)

	c.logger.Debug("watching config file", zap.String("path", filePath))
	return nil
}

// StopAutoUpdate stops automatic reloading and closes all subscriber channels
func (c *Config) StopAutoUpdate() {
	c.mutex.Lock()
	w := c.watcher
	c.watcher = nil
	c.mutex.Unlock()

	if w != nil {
		w.stop()
	}
}

// Watch returns a channel receiving changed paths and watch events.
// It starts auto-update if needed; without a loaded file, or once
// MaxWatchers is reached, the returned channel is already closed.
func (c *Config) Watch() <-chan string {
	return c.WatchWithOptions(DefaultWatchOptions())
}

// WatchWithOptions is Watch with custom options for a newly started watcher
func (c *Config) WatchWithOptions(opts WatchOptions) <-chan string {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w == nil {
		if err := c.AutoUpdateWithOptions(opts); err != nil {
			return closedChannel()
		}
		c.mutex.RLock()
		w = c.watcher
		c.mutex.RUnlock()
		if w == nil {
			return closedChannel()
		}
	}

	return w.subscribe()
}

// WatchFile loads a new file and moves the watcher to it
func (c *Config) WatchFile(filePath string) error {
	c.StopAutoUpdate()

	if err := c.LoadFile(filePath); err != nil {
		return fmt.Errorf("failed to load new file for watching: %w", err)
	}
	return c.AutoUpdate()
}

// IsWatching returns true if auto-update is enabled
func (c *Config) IsWatching() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.watcher != nil
}

// WatcherCount returns the number of active subscriber channels
func (c *Config) WatcherCount() int {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribers)
}

// run owns the debounce timer, so a reload only ever happens on this
// goroutine and stop returns after any reload in progress.
func (w *watcher) run(ctx context.Context, c *Config) {
	defer close(w.done)

	var (
		debounce clockwork.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) {
				continue
			}
			// Rearm with a fresh timer; a fired but unread one is dropped
			if debounce != nil {
				debounce.Stop()
			}
			debounce = w.opts.Clock.NewTimer(w.opts.Debounce)
			fire = debounce.Chan()

		case <-fire:
			debounce, fire = nil, nil
			if ctx.Err() == nil {
				w.reload(c)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// handleEvent reports whether the event should (re)start the debounce timer
func (w *watcher) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.filePath {
		return false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if _, err := os.Stat(w.filePath); errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("config file removed", zap.String("path", w.filePath))
			w.notify(EventFileDeleted)
			return false
		}
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// reload re-reads the file and notifies subscribers of every changed path
func (w *watcher) reload(c *Config) {
	before := c.snapshot()

	if err := c.loadFile(w.filePath); err != nil {
		w.logger.Warn("config reload failed", zap.String("path", w.filePath), zap.Error(err))
		w.notify(EventReloadError)
		return
	}

	after := c.snapshot()
	changed := 0
	for path, newVal := range after {
		if oldVal, existed := before[path]; !existed || !reflect.DeepEqual(oldVal, newVal) {
			w.notify(path)
			changed++
		}
	}
	w.logger.Debug("config reloaded", zap.String("path", w.filePath), zap.Int("changed", changed))
}

func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || len(w.subscribers) >= w.opts.MaxWatchers {
		return closedChannel()
	}

	ch := make(chan string, subscriberBuffer)
	w.nextID++
	w.subscribers[w.nextID] = ch
	return ch
}

// notify never blocks; a full subscriber misses the event
func (w *watcher) notify(event string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	for _, ch := range w.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (w *watcher) stop() {
	w.cancel()
	<-w.done

	if err := w.fs.Close(); err != nil {
		w.logger.Warn("failed to close config watcher", zap.Error(err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for id, ch := range w.subscribers {
		close(ch)
		delete(w.subscribers, id)
	}
}

func closedChannel() <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
