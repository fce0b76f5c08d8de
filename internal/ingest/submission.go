package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Direct submissions enter the pipeline as already-scored signals and skip
// extraction/aggregation. They still pass the decision engine and risk gate.

const submissionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["signals"],
  "properties": {
    "signals": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ticker", "action", "confidence"],
        "properties": {
          "ticker": {"type": "string", "minLength": 1, "maxLength": 5},
          "action": {"type": "string"},
          "strike": {"type": "number", "exclusiveMinimum": 0},
          "expiration_days": {"type": "integer", "minimum": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "reasoning": {"type": "string"}
        }
      }
    }
  }
}`

var submissionSchema = jsonschema.MustCompileString("submission.json", submissionSchemaJSON)

type submittedSignal struct {
	Ticker         string   `json:"ticker"`
	Action         string   `json:"action"`
	Strike         *float64 `json:"strike"`
	ExpirationDays *int     `json:"expiration_days"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
}

type submissionDoc struct {
	Signals []submittedSignal `json:"signals"`
}

// ParseSubmission validates and converts one JSON document. The document
// must pass the schema; individual entries with an unknown action are
// skipped and counted rather than failing the batch.
func ParseSubmission(raw []byte, now time.Time) ([]types.ScoredSignal, int, error) {
	var anyDoc any
	if err := json.Unmarshal(raw, &anyDoc); err != nil {
		return nil, 0, fmt.Errorf("submission: invalid json: %w", err)
	}
	if err := submissionSchema.Validate(anyDoc); err != nil {
		return nil, 0, fmt.Errorf("submission: schema: %w", err)
	}
	var doc submissionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("submission: decode: %w", err)
	}

	var (
		out         []types.ScoredSignal
		quarantined int
	)
	for _, s := range doc.Signals {
		action, ok := types.ParseAction(s.Action)
		if !ok || !action.Tradeable() {
			quarantined++
			continue
		}
		agg := types.AggregatedSignal{
			Symbol:         strings.ToUpper(strings.TrimSpace(s.Ticker)),
			Action:         action,
			ConsensusCount: 1,
			EarliestAt:     now,
			LatestAt:       now,
		}
		if s.Strike != nil {
			d := decimal.NewFromFloat(*s.Strike)
			agg.Strike = &d
		}
		if s.ExpirationDays != nil {
			days := *s.ExpirationDays
			agg.Candidates = []types.CandidateSignal{{
				Symbol:         agg.Symbol,
				Action:         action,
				Strike:         agg.Strike,
				ExpirationDays: &days,
				Sentiment:      action.Sentiment(),
				Urgency:        types.UrgencyLow,
				Timestamp:      now,
			}}
		}
		conf := s.Confidence
		if conf > 1 {
			conf = 1
		}
		if conf < 0 {
			conf = 0
		}
		out = append(out, types.ScoredSignal{
			AggregatedSignal: agg,
			Confidence:       conf,
			Source:           "submission",
			Rationale:        strings.TrimSpace(s.Reasoning),
		})
	}
	return out, quarantined, nil
}
