// Package watch reports changes made to a pool's directory tree, so
// that an operator can see when files are edited behind the pool's
// back.  It never modifies the pool.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/t7a/debpool"
)

// Event is a change to one file in the pool.
type Event struct {
	Path      string // absolute
	Component string
	Source    string
	Filename  string
	Op        fsnotify.Op
}

type Watcher struct {
	pool    *debpool.Pool
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	once    sync.Once
}

// New starts watching every directory under the pool's components.
// Directories created later are watched as they appear.
func New(pool *debpool.Pool) (w *Watcher, err error) {
	w = &Watcher{
		pool:   pool,
		events: make(chan Event),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.watcher = watcher
	defer func() {
		if err != nil {
			watcher.Close()
			w = nil
		}
	}()
	defer Return(&err)

	err = w.watcher.Add(pool.Root())
	Ck(err)
	for _, component := range pool.Components() {
		dir := filepath.Join(pool.Root(), component)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err = w.addTree(dir)
		Ck(err)
	}

	go w.run()
	return w, nil
}

// Events returns the channel pool file changes are delivered on.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel watch errors are delivered on.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher.  The event channels are closed.  Calling
// Close again does nothing.
func (w *Watcher) Close() (err error) {
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return
}

func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.events)
	defer close(w.errors)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				info, err := os.Lstat(ev.Name)
				if err == nil && info.IsDir() {
					err = w.addTree(ev.Name)
					// renameio's scratch dirs come and go quickly
					if err != nil && !os.IsNotExist(err) {
						w.sendErr(err)
					}
					continue
				}
			}
			event, ok := w.decode(ev)
			if !ok {
				continue
			}
			select {
			case w.events <- event:
			case <-w.done:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		}
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.errors <- err:
	default:
		log.Warnf("dropping watch error: %v", err)
	}
}

// decode maps a raw notification to a pool file, dropping anything
// that is not a file at the bottom of the pool layout.
func (w *Watcher) decode(ev fsnotify.Event) (event Event, ok bool) {
	path, err := debpool.Path{}.New(w.pool, ev.Name)
	if err != nil || path.Filename == "" || strings.HasPrefix(path.Filename, ".") {
		log.Debugf("ignoring %s on %s", ev.Op, ev.Name)
		return
	}
	event = Event{
		Path:      path.Abs,
		Component: path.Component,
		Source:    path.Source,
		Filename:  path.Filename,
		Op:        ev.Op,
	}
	return event, true
}
