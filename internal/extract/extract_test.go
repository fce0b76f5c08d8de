package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

func msg(text string) types.RawMessage {
	return types.RawMessage{
		OriginatorID: "orig-1",
		Timestamp:    time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Text:         text,
		SourceTag:    "whatsapp",
	}
}

func TestExtract_HebrewCallWithStrike(t *testing.T) {
	e := New(nil)

	out := e.Extract(msg("NVDA קול 850 עכשיו!"))
	require.Len(t, out, 1)

	c := out[0]
	assert.Equal(t, "NVDA", c.Symbol)
	assert.Equal(t, types.ActionBuyCall, c.Action)
	require.NotNil(t, c.Strike)
	assert.Equal(t, "850", c.Strike.String())
	assert.Equal(t, types.UrgencyHigh, c.Urgency)
	assert.Equal(t, types.SentimentBullish, c.Sentiment)
	assert.Equal(t, "orig-1", c.OriginatorID)
	assert.Equal(t, "NVDA קול 850 עכשיו!", c.Evidence)
}

func TestExtract_Deterministic(t *testing.T) {
	e := New(nil)
	m := msg("טסלה פוט 200 לשבוע")

	first := e.Extract(m)
	second := e.Extract(m)
	assert.Equal(t, first, second)

	require.Len(t, first, 1)
	assert.Equal(t, "TSLA", first[0].Symbol)
	assert.Equal(t, types.ActionBuyPut, first[0].Action)
	require.NotNil(t, first[0].ExpirationDays)
	assert.Equal(t, 7, *first[0].ExpirationDays)
}

func TestExtract_ActionDerivation(t *testing.T) {
	e := New(nil)

	cases := []struct {
		name   string
		text   string
		action types.Action
	}{
		{"buy call", "קונה קול AAPL", types.ActionBuyCall},
		{"buy put", "AAPL פוט", types.ActionBuyPut},
		{"sell call", "שורט קול TSLA", types.ActionSellCall},
		{"sell put", "מוכר פוטים NVDA", types.ActionSellPut},
		{"bullish lean without option word", "AAPL פריצה חזקה", types.ActionBuyCall},
		{"bearish lean without option word", "AAPL יורד חלש", types.ActionBuyPut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := e.Extract(msg(tc.text))
			require.Len(t, out, 1)
			assert.Equal(t, tc.action, out[0].Action)
		})
	}
}

func TestExtract_TickerWithoutActionDiscarded(t *testing.T) {
	e := New(nil)

	assert.Empty(t, e.Extract(msg("NVDA נראה מעניין")))
	assert.Empty(t, e.Extract(msg("מה דעתכם על AAPL")))
}

func TestExtract_BareAffirmation(t *testing.T) {
	e := New(nil)

	out := e.Extract(msg("נכנס"))
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Symbol)
	assert.Empty(t, out[0].Action)
	assert.Equal(t, "orig-1", out[0].OriginatorID)

	// An affirmation verb plus a ticker is a concrete signal, not a bare one.
	out = e.Extract(msg("נכנס על MSFT"))
	require.Len(t, out, 1)
	assert.Equal(t, "MSFT", out[0].Symbol)
	assert.Equal(t, types.ActionBuyCall, out[0].Action)
}

func TestExtract_MultipleTickers(t *testing.T) {
	e := New(nil)

	out := e.Extract(msg("קונה AAPL MSFT"))
	require.Len(t, out, 2)
	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, "MSFT", out[1].Symbol)
	assert.Equal(t, types.ActionBuyCall, out[0].Action)
	assert.Equal(t, out[0].Action, out[1].Action)
}

func TestExtract_StrikeAdjacency(t *testing.T) {
	e := New(nil)

	t.Run("dollar prefix next to ticker", func(t *testing.T) {
		out := e.Extract(msg("קונה TSLA $420 קול"))
		require.Len(t, out, 1)
		require.NotNil(t, out[0].Strike)
		assert.Equal(t, "420", out[0].Strike.String())
	})

	t.Run("free floating number ignored", func(t *testing.T) {
		out := e.Extract(msg("TSLA פוט אולי נראה את 850"))
		require.Len(t, out, 1)
		assert.Nil(t, out[0].Strike)
	})
}

func TestExtract_StopwordsNotTickers(t *testing.T) {
	e := New(nil)

	// "BUY" and "NOW" match the ticker shape but must not become symbols.
	assert.Empty(t, e.Extract(msg("BUY NOW")))
}

func TestExtract_HebrewTickerAlias(t *testing.T) {
	e := New(nil)

	out := e.Extract(msg("אנבידיה קול 850"))
	require.Len(t, out, 1)
	assert.Equal(t, "NVDA", out[0].Symbol)
}
