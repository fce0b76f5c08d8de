// Package lexicon maps foreign-script trading chatter onto a canonical
// English vocabulary. The table is fixed data; translation is a pure lookup
// and never fails: unknown tokens pass through unchanged, so adding a new
// language is additive.
package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical tokens the extractor pattern-matches on.
const (
	TokenCall      = "call"
	TokenPut       = "put"
	TokenBuy       = "buy"
	TokenSell      = "sell"
	TokenEnter     = "enter"
	TokenAgree     = "agree"
	TokenHold      = "hold"
	TokenUp        = "up"
	TokenDown      = "down"
	TokenStrong    = "strong"
	TokenWeak      = "weak"
	TokenBreakout  = "breakout"
	TokenBreakdown = "breakdown"
	TokenNow       = "now"
	TokenUrgent    = "urgent"
	TokenWeekTerm  = "week"
	TokenMonthTerm = "month"
)

// Table holds the term and ticker-alias mappings for one vocabulary.
type Table struct {
	terms   map[string]string
	tickers map[string]string
}

// Default returns the built-in Hebrew vocabulary used by the chat groups
// this bot was written for.
func Default() *Table {
	return &Table{
		terms: map[string]string{
			// option types
			"קול":   TokenCall,
			"קולים": TokenCall,
			"פוט":   TokenPut,
			"פוטים": TokenPut,
			// action verbs
			"קונה":   TokenBuy,
			"קנה":    TokenBuy,
			"קניתי":  TokenBuy,
			"לקנות":  TokenBuy,
			"לונג":   TokenBuy,
			"מוכר":   TokenSell,
			"מכר":    TokenSell,
			"מכרתי":  TokenSell,
			"למכור":  TokenSell,
			"שורט":   TokenSell,
			"נכנס":   TokenEnter,
			"נכנסת":  TokenEnter,
			"נכנסים": TokenEnter,
			"מסכים":  TokenAgree,
			"מסכימה": TokenAgree,
			"מחזיק":  TokenHold,
			// direction / sentiment
			"עולה":    TokenUp,
			"עלייה":   TokenUp,
			"יורד":    TokenDown,
			"יורדת":   TokenDown,
			"ירידה":   TokenDown,
			"חזק":     TokenStrong,
			"חזקה":    TokenStrong,
			"חלש":     TokenWeak,
			"חלשה":    TokenWeak,
			"פריצה":   TokenBreakout,
			"מתפרץ":   TokenBreakout,
			"מתפרצת":  TokenBreakout,
			"נפילה":   TokenBreakdown,
			"התרסקות": TokenBreakdown,
			// urgency
			"עכשיו": TokenNow,
			"דחוף":  TokenUrgent,
			"מהר":   TokenUrgent,
			// expiration horizon
			"שבוע":  TokenWeekTerm,
			"לשבוע": TokenWeekTerm,
			"חודש":  TokenMonthTerm,
			"לחודש": TokenMonthTerm,
		},
		tickers: map[string]string{
			"אפל":       "AAPL",
			"טסלה":      "TSLA",
			"אנבידיה":   "NVDA",
			"גוגל":      "GOOGL",
			"אמזון":     "AMZN",
			"מיקרוסופט": "MSFT",
			"מטא":       "META",
		},
	}
}

type tableFile struct {
	Terms   map[string]string `yaml:"terms"`
	Tickers map[string]string `yaml:"tickers"`
}

// Load reads extra vocabulary from a YAML file and merges it over the
// defaults. File entries win on conflict.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: reading %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("lexicon: parsing %s: %w", path, err)
	}
	t := Default()
	for k, v := range f.Terms {
		t.terms[strings.TrimSpace(k)] = strings.ToLower(strings.TrimSpace(v))
	}
	for k, v := range f.Tickers {
		t.tickers[strings.TrimSpace(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	return t, nil
}

// Translate maps one token to its canonical form. Unknown tokens are
// returned unchanged.
func (t *Table) Translate(token string) string {
	if t == nil {
		return token
	}
	if canon, ok := t.terms[token]; ok {
		return canon
	}
	return token
}

// TickerAlias resolves a foreign-language company name to its symbol.
func (t *Table) TickerAlias(token string) (string, bool) {
	if t == nil {
		return "", false
	}
	sym, ok := t.tickers[token]
	return sym, ok
}
