package host

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultWatchDebounce = 150 * time.Millisecond

// fileWatcher watches the directories of subscribed files and reports
// debounced changes per file. Directories are watched rather than files so
// that editors which save by rename keep being tracked.
type fileWatcher struct {
	fs       *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration
	onChange func(path string)

	mu      sync.Mutex
	files   map[string]int // absolute path -> subscription count
	dirs    map[string]int // watched directory -> file count
	pending map[string]*time.Timer
	done    chan struct{}
}

func newFileWatcher(logger zerolog.Logger, debounce time.Duration, onChange func(path string)) (*fileWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w := &fileWatcher{
		fs:       fs,
		logger:   logger,
		debounce: debounce,
		onChange: onChange,
		files:    make(map[string]int),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Add subscribes to path. Subscriptions are counted.
func (w *fileWatcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] > 0 {
		w.files[path]++
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = 1
	return nil
}

// Remove drops one subscription to path.
func (w *fileWatcher) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count, ok := w.files[path]
	if !ok {
		return
	}
	if count > 1 {
		w.files[path] = count - 1
		return
	}
	delete(w.files, path)
	if timer := w.pending[path]; timer != nil {
		timer.Stop()
		delete(w.pending, path)
	}

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
}

// Watching reports whether path has subscribers.
func (w *fileWatcher) Watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path] > 0
}

func (w *fileWatcher) Close() error {
	close(w.done)
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *fileWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(filepath.Clean(event.Name))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *fileWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] == 0 {
		return
	}
	if timer := w.pending[path]; timer != nil {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		watching := w.files[path] > 0
		w.mu.Unlock()
		if watching {
			w.onChange(path)
		}
	})
}
