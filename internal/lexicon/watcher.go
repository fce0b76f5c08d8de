package lexicon

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
)

// Snapshot is a versioned read-only view of the loaded table.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Table    *Table
}

// ChangeListener is invoked after each successful reload.
type ChangeListener func(Snapshot)

// Watcher keeps a vocabulary file loaded and hot-reloads it on change,
// so new terms or ticker aliases take effect without a restart. A bad
// edit keeps the previous table in place.
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewWatcher(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("lexicon watcher requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read lexicon file failed: %w", err)
	}
	w := &Watcher{path: path, v: v}
	if err := w.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("lexicon reload failed (%s): %v", evt.Name, err)
			return
		}
		w.notify()
	})
	v.WatchConfig()
	return w, nil
}

// Snapshot returns the current table. The Table itself is never mutated
// after load, so sharing the pointer is safe.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Table is a convenience accessor for the current table.
func (w *Watcher) Table() *Table {
	return w.Snapshot().Table
}

// Subscribe registers a listener and immediately delivers the current
// snapshot to it.
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	snap := w.snapshot
	w.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("lexicon listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (w *Watcher) notify() {
	w.mu.RLock()
	snap := w.snapshot
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("lexicon listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (w *Watcher) reload() error {
	table, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = Snapshot{
		Version:  w.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Table:    table,
	}
	version := w.snapshot.Version
	w.mu.Unlock()
	logger.Infof("lexicon reloaded from %s (version %d)", filepath.Base(w.path), version)
	return nil
}
