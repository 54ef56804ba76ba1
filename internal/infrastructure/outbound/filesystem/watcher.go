package filesystem

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

// inputExtensions are the file types any loader can read.
var inputExtensions = []string{
	".yaml", ".yml", ".json", ".graphql", ".gql", ".graphqls", ".proto", ".csv", ".xml",
}

// Watcher watches the directories holding contract and exchange inputs and
// calls onChange once per burst of edits.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	logger   ports.Logger
	watcher  *fsnotify.Watcher
	onChange func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches the parent directory of every input path. Directories in
// paths are watched recursively.
func NewWatcher(paths []string, debounce time.Duration, logger ports.Logger, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		debounce: debounce,
		logger:   logger,
		watcher:  fsWatcher,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			_ = fsWatcher.Close()
			return nil, err
		}
		if info.IsDir() {
			if err := w.addRecursive(p, seen); err != nil {
				_ = fsWatcher.Close()
				return nil, err
			}
			continue
		}
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return nil, err
		}
	}
	for dir := range seen {
		w.dirs = append(w.dirs, dir)
	}
	sort.Strings(w.dirs)

	return w, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string { return w.dirs }

// Start begins watching in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !HasExt(event.Name, inputExtensions...) {
				continue
			}

			w.logger.Debug("input change detected", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timerC:
			w.logger.Info("recomputing coverage due to input changes")
			w.onChange()
			timerC = nil
		}
	}
}

func (w *Watcher) addRecursive(dir string, seen map[string]bool) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || seen[path] {
			return nil
		}
		seen[path] = true
		return w.watcher.Add(path)
	})
}
