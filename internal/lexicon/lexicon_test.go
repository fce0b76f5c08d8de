package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	assert.Equal(t, TokenCall, table.Translate("קול"))
	assert.Equal(t, TokenPut, table.Translate("פוטים"))
	assert.Equal(t, TokenNow, table.Translate("עכשיו"))
	assert.Equal(t, "whatever", table.Translate("whatever"), "unknown tokens pass through")

	sym, ok := table.TickerAlias("אפל")
	require.True(t, ok)
	assert.Equal(t, "AAPL", sym)

	_, ok = table.TickerAlias("אין")
	assert.False(t, ok)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	body := "terms:\n  יאללה: now\n  קול: put\ntickers:\n  נטפליקס: nflx\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TokenNow, table.Translate("יאללה"))
	assert.Equal(t, TokenPut, table.Translate("קול"), "file entries win on conflict")
	assert.Equal(t, TokenBuy, table.Translate("קונה"), "defaults survive the merge")

	sym, ok := table.TickerAlias("נטפליקס")
	require.True(t, ok)
	assert.Equal(t, "NFLX", sym, "ticker values are upcased")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("terms: [not, a, map]"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestNilTableIsInert(t *testing.T) {
	var table *Table
	assert.Equal(t, "קול", table.Translate("קול"))
	_, ok := table.TickerAlias("אפל")
	assert.False(t, ok)
}
