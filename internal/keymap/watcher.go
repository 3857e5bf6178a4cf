package keymap

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher errors.
var (
	// ErrWatcherClosed indicates use of a closed watcher.
	ErrWatcherClosed = errors.New("keymap: watcher closed")
)

// BuildFunc rebuilds a table set from a layout path. The watcher calls
// it after the layout file changes on disk.
type BuildFunc func(path string) (*Tables, error)

// Watcher rebuilds a layout file whenever it changes on disk and
// delivers the new table set over a channel. It watches the layout's
// parent directory because editors commonly replace the file by rename,
// which drops a direct file watch.
type Watcher struct {
	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	path   string
	build  BuildFunc
	settle time.Duration

	tables chan *Tables
	errs   chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts watching the layout at path. build runs on the
// watcher goroutine; the resulting table set (or error) arrives on
// Tables or Errors. Slow consumers lose intermediate rebuilds, never
// the latest one pending in the channel buffer.
func NewWatcher(path string, build BuildFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		path:    abs,
		build:   build,
		settle:  50 * time.Millisecond,
		tables:  make(chan *Tables, 1),
		errs:    make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Tables returns the channel carrying freshly built table sets.
func (w *Watcher) Tables() <-chan *Tables {
	return w.tables
}

// Errors returns the channel carrying rebuild and watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher and releases the underlying file watch.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// loop handles incoming fsnotify events until Close.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var settle *time.Timer
	var settleCh <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			// Editors produce bursts of events per save; rebuild once
			// after they settle.
			if settle == nil {
				settle = time.NewTimer(w.settle)
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(w.settle)
			}
			settleCh = settle.C

		case <-settleCh:
			settleCh = nil
			w.rebuild()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// rebuild runs the build and delivers its outcome, replacing any
// undelivered previous outcome.
func (w *Watcher) rebuild() {
	t, err := w.build(w.path)
	if err != nil {
		w.sendError(err)
		return
	}
	select {
	case w.tables <- t:
	default:
		select {
		case <-w.tables:
		default:
		}
		w.tables <- t
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
