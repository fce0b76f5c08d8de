package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInbox(t *testing.T) (*Inbox, *Queue, string) {
	t.Helper()
	dir := t.TempDir()
	q := NewQueue()
	in := NewInbox(dir, q, &ChatParser{SourceTag: "whatsapp"})
	for _, sub := range []string{"processed", "quarantine"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	return in, q, dir
}

func TestInbox_SweepIngestsExistingFiles(t *testing.T) {
	in, q, dir := newTestInbox(t)

	export := "[3/2/26, 10:30:05] Dani: NVDA קול 850\nnot an envelope\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.txt"), []byte(export), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signals.json"), []byte(`{"signals":[]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("ignored"), 0o644))

	in.sweep()

	msgs, subs, _ := q.Drain()
	assert.Len(t, msgs, 1)
	assert.Len(t, subs, 1)

	// Ingested files are archived; unknown extensions stay put.
	processed, err := os.ReadDir(filepath.Join(dir, "processed"))
	require.NoError(t, err)
	assert.Len(t, processed, 2)
	_, err = os.Stat(filepath.Join(dir, "notes.pdf"))
	assert.NoError(t, err)
}

func TestInbox_ProcessArchivesWithTimestampPrefix(t *testing.T) {
	in, _, dir := newTestInbox(t)

	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"signals":[]}`), 0o644))
	in.process(path)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	processed, err := os.ReadDir(filepath.Join(dir, "processed"))
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Contains(t, processed[0].Name(), "batch.json")
	assert.NotEqual(t, "batch.json", processed[0].Name())
}

func TestInbox_MissingFileIsNoop(t *testing.T) {
	in, q, dir := newTestInbox(t)
	in.process(filepath.Join(dir, "ghost.txt"))
	m, s := q.Pending()
	assert.Zero(t, m)
	assert.Zero(t, s)
}
