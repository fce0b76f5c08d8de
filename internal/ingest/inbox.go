package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
)

// Inbox watches a drop directory. New .txt files are parsed as chat
// exports, .json files as signal submissions. Processed files move to
// processed/, files that cannot be read at all move to quarantine/.
type Inbox struct {
	dir     string
	queue   *Queue
	parser  *ChatParser
	settle  time.Duration
	watcher *fsnotify.Watcher
}

func NewInbox(dir string, queue *Queue, parser *ChatParser) *Inbox {
	return &Inbox{
		dir:    dir,
		queue:  queue,
		parser: parser,
		settle: 200 * time.Millisecond,
	}
}

// Start begins watching. Files already present in the directory are
// ingested first so a restart never strands input. Blocks until ctx is
// cancelled.
func (in *Inbox) Start(ctx context.Context) error {
	for _, sub := range []string{"processed", "quarantine"} {
		if err := os.MkdirAll(filepath.Join(in.dir, sub), 0o755); err != nil {
			return fmt.Errorf("inbox: prepare %s: %w", sub, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: watcher: %w", err)
	}
	in.watcher = watcher
	defer watcher.Close()
	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", in.dir, err)
	}

	in.sweep()

	logger.Infof("inbox watching %s", in.dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			// Writers may still be flushing when the event fires.
			time.Sleep(in.settle)
			in.process(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("inbox watch error: %v", err)
		}
	}
}

// sweep ingests whatever is already sitting in the directory.
func (in *Inbox) sweep() {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		logger.Warnf("inbox sweep: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		in.process(filepath.Join(in.dir, e.Name()))
	}
}

func (in *Inbox) process(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != ".json" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnf("inbox: read %s: %v", filepath.Base(path), err)
		in.move(path, "quarantine")
		return
	}

	switch ext {
	case ".txt":
		msgs, quarantined := in.parser.Parse(strings.NewReader(string(data)))
		in.queue.AddMessages(msgs)
		in.queue.CountQuarantined(quarantined)
		logger.Infof("inbox: %s -> %d messages, %d malformed lines",
			filepath.Base(path), len(msgs), quarantined)
	case ".json":
		in.queue.AddSubmission(data)
		logger.Infof("inbox: %s queued as submission", filepath.Base(path))
	}
	in.move(path, "processed")
}

func (in *Inbox) move(path, sub string) {
	base := filepath.Base(path)
	dst := filepath.Join(in.dir, sub, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base))
	if err := os.Rename(path, dst); err != nil {
		logger.Warnf("inbox: archive %s: %v", base, err)
	}
}
