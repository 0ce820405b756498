// Package watchdir observes a directory for newly-appearing files and
// invokes a user callback on each candidate, debouncing files that are
// still being written.
package watchdir

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/utils/backoff"
)

// Result is what a Callback returns for one candidate path.
type Result int

const (
	// Done means the file was fully handled; stop tracking it.
	Done Result = iota
	// Retry means the file isn't ready yet (e.g. still being written);
	// re-test it after a debounce interval.
	Retry
	// Ignore means the file doesn't match and should never be retried.
	Ignore
)

// Predicate reports whether path is a candidate worth testing at all
// (e.g. a ".torrent" extension check), run before Callback.
type Predicate func(path string) bool

// Callback is invoked for each candidate path. Returning Retry causes
// watchdir to re-invoke it later, up to the configured retry timeout.
type Callback func(path string) Result

// Watcher observes a single directory using native filesystem
// notifications (inotify/kqueue/ReadDirectoryChangesW via fsnotify),
// falling back to nothing else — fsnotify itself is the
// platform-abstraction layer spec allows ("native FS notifications or
// polling; contract is the same").
type Watcher struct {
	dir      string
	test     Predicate
	callback Callback
	backoff  *backoff.Backoff
	log      *zap.SugaredLogger

	fsw *fsnotify.Watcher

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New starts watching dir. Config bounds the debounce retry schedule for
// files that return Retry; a zero Config gets backoff's own defaults.
func New(dir string, test Predicate, callback Callback, retryConfig backoff.Config, log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %s", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %s", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		test:     test,
		callback: callback,
		backoff:  backoff.New(retryConfig),
		log:      log,
		fsw:      fsw,
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Close stops watching and waits for any in-flight retry loops to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if w.test != nil && !w.test(event.Name) {
				continue
			}
			w.wg.Add(1)
			go w.handle(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Errorf("watchdir %s: %s", w.dir, err)
			}
		}
	}
}

// handle re-tests path on a debounce schedule until the callback returns
// something other than Retry, or the retry timeout is reached.
func (w *Watcher) handle(path string) {
	defer w.wg.Done()

	attempts := w.backoff.Attempts()
	for attempts.WaitForNext() {
		switch w.callback(path) {
		case Done, Ignore:
			return
		case Retry:
			continue
		}
	}
	if w.log != nil && attempts.Err() != nil {
		w.log.Warnf("watchdir %s: gave up retrying %s: %s", w.dir, path, attempts.Err())
	}
}
