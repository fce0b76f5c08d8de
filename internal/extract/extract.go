// Package extract scans normalized chat text for trading signals: ticker
// symbols, action/direction, strike levels and urgency markers.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/lexicon"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Common uppercase words that match the ticker shape but are not symbols.
var stopwords = map[string]struct{}{
	"A": {}, "I": {}, "THE": {}, "AND": {}, "OR": {}, "IF": {}, "IN": {},
	"ON": {}, "AT": {}, "TO": {}, "IT": {}, "BE": {}, "DO": {}, "GO": {},
	"UP": {}, "ALL": {}, "FOR": {}, "NOW": {}, "NOT": {}, "BUY": {},
	"SELL": {}, "CALL": {}, "PUT": {}, "HOLD": {}, "CEO": {}, "IPO": {},
	"ETF": {}, "USA": {}, "USD": {}, "AI": {}, "PM": {}, "AM": {},
}

const (
	horizonWeekDays  = 7
	horizonMonthDays = 30
)

// Extractor turns a RawMessage into zero or more candidate signals. It is
// stateless: re-running on the same message yields identical output.
type Extractor struct {
	table *lexicon.Table
}

func New(table *lexicon.Table) *Extractor {
	if table == nil {
		table = lexicon.Default()
	}
	return &Extractor{table: table}
}

// token is one normalized word plus what we recognized it as.
type token struct {
	raw    string
	canon  string
	symbol string // resolved ticker, "" if not one
	num    *decimal.Decimal
}

// Extract returns the candidate signals found in msg, in text order. A
// message that names a ticker without any recognizable action yields
// nothing. A message with an enter/agree verb and no ticker yields a single
// affirmation candidate (empty symbol) that the aggregator may attach to a
// nearby group.
func (e *Extractor) Extract(msg types.RawMessage) []types.CandidateSignal {
	toks := e.tokenize(msg.Text)
	if len(toks) == 0 {
		return nil
	}

	var (
		tickerIdx  []int
		anchorIdx  []int // action/option keywords; strikes must touch these or a ticker
		bullish    int
		bearish    int
		hasCall    bool
		hasPut     bool
		hasSell    bool
		hasAffirm  bool
		urgency    = types.UrgencyLow
		horizon    *int
		hasKeyword bool
	)
	for i, t := range toks {
		if t.symbol != "" {
			tickerIdx = append(tickerIdx, i)
			continue
		}
		switch t.canon {
		case lexicon.TokenCall:
			hasCall, hasKeyword = true, true
			bullish++
			anchorIdx = append(anchorIdx, i)
		case lexicon.TokenPut:
			hasPut, hasKeyword = true, true
			bearish++
			anchorIdx = append(anchorIdx, i)
		case lexicon.TokenBuy:
			hasKeyword = true
			bullish++
			anchorIdx = append(anchorIdx, i)
		case lexicon.TokenSell:
			hasSell, hasKeyword = true, true
			bearish++
			anchorIdx = append(anchorIdx, i)
		case lexicon.TokenEnter, lexicon.TokenAgree:
			hasAffirm, hasKeyword = true, true
			bullish++
			anchorIdx = append(anchorIdx, i)
		case lexicon.TokenUp, lexicon.TokenStrong, lexicon.TokenBreakout:
			hasKeyword = true
			bullish++
		case lexicon.TokenDown, lexicon.TokenWeak, lexicon.TokenBreakdown:
			hasKeyword = true
			bearish++
		case lexicon.TokenNow, lexicon.TokenUrgent:
			urgency = types.UrgencyHigh
		case lexicon.TokenWeekTerm:
			if horizon == nil {
				d := horizonWeekDays
				horizon = &d
			}
		case lexicon.TokenMonthTerm:
			if horizon == nil {
				d := horizonMonthDays
				horizon = &d
			}
		}
	}

	action, sentiment := deriveAction(hasCall, hasPut, hasSell, bullish, bearish)

	if len(tickerIdx) == 0 {
		// No ticker: only a bare affirmation survives, for consensus counting.
		if hasAffirm {
			return []types.CandidateSignal{{
				Sentiment:    sentiment,
				Urgency:      urgency,
				OriginatorID: msg.OriginatorID,
				Timestamp:    msg.Timestamp,
				Evidence:     msg.Text,
			}}
		}
		return nil
	}
	if action == "" || !hasKeyword {
		return nil
	}

	strike := findStrike(toks, tickerIdx, anchorIdx)

	out := make([]types.CandidateSignal, 0, len(tickerIdx))
	for _, idx := range tickerIdx {
		out = append(out, types.CandidateSignal{
			Symbol:         toks[idx].symbol,
			Action:         action,
			Strike:         strike,
			ExpirationDays: horizon,
			Sentiment:      sentiment,
			Urgency:        urgency,
			OriginatorID:   msg.OriginatorID,
			Timestamp:      msg.Timestamp,
			Evidence:       msg.Text,
		})
	}
	return out
}

func deriveAction(hasCall, hasPut, hasSell bool, bullish, bearish int) (types.Action, types.Sentiment) {
	switch {
	case hasCall && !hasPut:
		if hasSell {
			return types.ActionSellCall, types.SentimentBearish
		}
		return types.ActionBuyCall, types.SentimentBullish
	case hasPut && !hasCall:
		if hasSell {
			return types.ActionSellPut, types.SentimentBullish
		}
		return types.ActionBuyPut, types.SentimentBearish
	case bullish > bearish:
		return types.ActionBuyCall, types.SentimentBullish
	case bearish > bullish:
		return types.ActionBuyPut, types.SentimentBearish
	}
	return "", types.SentimentNeutral
}

// findStrike picks the first number directly adjacent to a ticker or action
// keyword. Free-floating numbers (dates, counts) never qualify.
func findStrike(toks []token, tickerIdx, anchorIdx []int) *decimal.Decimal {
	adjacent := make(map[int]struct{}, 2*(len(tickerIdx)+len(anchorIdx)))
	for _, idx := range append(append([]int{}, tickerIdx...), anchorIdx...) {
		adjacent[idx-1] = struct{}{}
		adjacent[idx+1] = struct{}{}
	}
	for i, t := range toks {
		if t.num == nil {
			continue
		}
		if _, ok := adjacent[i]; ok {
			return t.num
		}
	}
	return nil
}

func (e *Extractor) tokenize(text string) []token {
	fields := strings.Fields(text)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		raw := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if raw == "" {
			continue
		}
		t := token{raw: raw, canon: strings.ToLower(e.table.Translate(raw))}
		if sym, ok := e.table.TickerAlias(raw); ok {
			t.symbol = sym
		} else if tickerPattern.MatchString(raw) {
			if _, stop := stopwords[raw]; !stop {
				t.symbol = raw
			}
		}
		if t.symbol == "" {
			if num, err := decimal.NewFromString(strings.TrimPrefix(raw, "$")); err == nil {
				t.num = &num
			}
		}
		out = append(out, t)
	}
	return out
}
