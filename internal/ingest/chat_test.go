package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatParser_Parse(t *testing.T) {
	p := &ChatParser{SourceTag: "whatsapp"}
	export := strings.Join([]string{
		"[3/2/26, 10:30:05] Dani Levi: NVDA קול 850 עכשיו!",
		"[3/2/2026, 10:31:00] Rina: מסכים",
		"continuation line without envelope",
		"[broken envelope no colon",
		"",
		"[3/2/26, 10:32:10] Dani Levi: טסלה פוט",
	}, "\n")

	msgs, quarantined := p.Parse(strings.NewReader(export))
	require.Len(t, msgs, 3)
	assert.Equal(t, 1, quarantined, "only the broken bracketed line quarantines")

	assert.Equal(t, "NVDA קול 850 עכשיו!", msgs[0].Text)
	assert.Equal(t, "whatsapp", msgs[0].SourceTag)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 30, 5, 0, time.UTC), msgs[0].Timestamp)
	// Both two- and four-digit years parse to the same day.
	assert.Equal(t, msgs[0].Timestamp.Truncate(24*time.Hour), msgs[1].Timestamp.Truncate(24*time.Hour))

	// Same display name, same opaque id; names never survive parsing.
	assert.Equal(t, msgs[0].OriginatorID, msgs[2].OriginatorID)
	assert.NotEqual(t, msgs[0].OriginatorID, msgs[1].OriginatorID)
	for _, m := range msgs {
		assert.NotContains(t, m.OriginatorID, "Dani")
		assert.NotContains(t, m.OriginatorID, "Rina")
	}
}

func TestChatParser_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	p := &ChatParser{Location: loc}

	msgs, _ := p.Parse(strings.NewReader("[7/1/26, 12:00:00] A: קונה AAPL"))
	require.Len(t, msgs, 1)
	// July is UTC+3 in Israel; timestamps normalize to UTC.
	assert.Equal(t, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), msgs[0].Timestamp)
	assert.Equal(t, "chat", msgs[0].SourceTag, "empty tag falls back")
}

func TestHashOriginator(t *testing.T) {
	a := HashOriginator("Dani Levi")
	b := HashOriginator("  Dani Levi  ")
	c := HashOriginator("Rina")

	assert.Equal(t, a, b, "surrounding whitespace is not identity")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
	assert.NotContains(t, a, "Dani")
}
