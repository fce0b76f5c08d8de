package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the canonical trading action attached to a signal.
type Action string

const (
	ActionBuyCall  Action = "BUY_CALL"
	ActionBuyPut   Action = "BUY_PUT"
	ActionSellCall Action = "SELL_CALL"
	ActionSellPut  Action = "SELL_PUT"
	ActionHold     Action = "HOLD"
)

// ParseAction normalizes a raw action string. Returns ("", false) for
// anything outside the canonical set.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionBuyCall:
		return ActionBuyCall, true
	case ActionBuyPut:
		return ActionBuyPut, true
	case ActionSellCall:
		return ActionSellCall, true
	case ActionSellPut:
		return ActionSellPut, true
	case ActionHold:
		return ActionHold, true
	}
	return "", false
}

// Sentiment derives the directional bias implied by the action.
func (a Action) Sentiment() Sentiment {
	switch a {
	case ActionBuyCall, ActionSellPut:
		return SentimentBullish
	case ActionBuyPut, ActionSellCall:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// Tradeable reports whether the action opens a position.
func (a Action) Tradeable() bool {
	return a != ActionHold && a != ""
}

type Sentiment string

const (
	SentimentBullish Sentiment = "BULLISH"
	SentimentBearish Sentiment = "BEARISH"
	SentimentNeutral Sentiment = "NEUTRAL"
)

type Urgency string

const (
	UrgencyLow  Urgency = "LOW"
	UrgencyHigh Urgency = "HIGH"
)

// RawMessage is one ingested chat entry. Originator names are hashed before
// this struct is built; the ID here is opaque. Immutable after ingestion.
type RawMessage struct {
	OriginatorID string    `json:"originator_id"`
	Timestamp    time.Time `json:"timestamp"`
	Text         string    `json:"text"`
	SourceTag    string    `json:"source_tag"`
}

// CandidateSignal is one extracted mention of a tradable intent. Several
// candidates may describe the same real-world call.
type CandidateSignal struct {
	Symbol         string           `json:"symbol"`
	Action         Action           `json:"action"`
	Strike         *decimal.Decimal `json:"strike,omitempty"`
	ExpirationDays *int             `json:"expiration_days,omitempty"`
	Sentiment      Sentiment        `json:"sentiment"`
	Urgency        Urgency          `json:"urgency"`
	OriginatorID   string           `json:"originator_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Evidence       string           `json:"evidence"`
}

// AggregatedSignal groups candidates that assert the same symbol+action
// inside one aggregation window.
type AggregatedSignal struct {
	Symbol         string            `json:"symbol"`
	Action         Action            `json:"action"`
	Strike         *decimal.Decimal  `json:"strike,omitempty"`
	ConsensusCount int               `json:"consensus_count"`
	EarliestAt     time.Time         `json:"earliest_at"`
	LatestAt       time.Time         `json:"latest_at"`
	Candidates     []CandidateSignal `json:"candidates,omitempty"`
}

// HasHighUrgency reports whether any contributor flagged urgency.
func (a AggregatedSignal) HasHighUrgency() bool {
	for _, c := range a.Candidates {
		if c.Urgency == UrgencyHigh {
			return true
		}
	}
	return false
}

// HorizonDays returns the first expiration horizon any contributor supplied.
func (a AggregatedSignal) HorizonDays() *int {
	for _, c := range a.Candidates {
		if c.ExpirationDays != nil {
			return c.ExpirationDays
		}
	}
	return nil
}

// ScoredSignal is an AggregatedSignal with a bounded confidence attached.
// Source records which adapter produced it ("submission", "chat", "technical").
type ScoredSignal struct {
	AggregatedSignal
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Rationale  string  `json:"rationale,omitempty"`
}
