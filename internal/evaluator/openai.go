package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/pkg/circuit"
	"github.com/liorsolomon/ai-options-trading-bot/internal/pkg/jsonutil"
)

const systemPrompt = `You are a cautious options trade reviewer. You receive one proposed
trade and a technical snapshot of the underlying. Reply with a single JSON object:
{"approve": true|false, "confidence": 0.0-1.0, "reasoning": "short explanation"}.
You may keep or lower the proposed confidence, never raise it. Reject trades that
contradict the prevailing trend or rest on thin evidence.`

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	ExtraHeaders map[string]string
}

// CallWithMessages posts one system+user exchange and returns the
// assistant text. 429 and 5xx responses are retried with backoff,
// honoring Retry-After when present.
func (c *ChatClient) CallWithMessages(ctx context.Context, system, user string) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// Tolerate configs that already include the full path.
	url = strings.TrimSuffix(url, "/chat/completions") + "/chat/completions"

	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})
	body, _ := json.Marshal(map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.2,
	})

	httpc := &http.Client{Timeout: timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt == 0 {
			logger.Debugf("[evaluator] POST %s auth=%s body=%dB", url, maskKey(c.APIKey), len(body))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(r.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			return r.Choices[0].Message.Content, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		retryable := resp.StatusCode == 429 || resp.StatusCode >= 500
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryable || attempt >= maxRetries {
			resp.Body.Close()
			break
		}
		wait := time.Duration(0)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		resp.Body.Close()
		if wait == 0 {
			wait = 800 * time.Millisecond << attempt
			if wait > 8*time.Second {
				wait = 8 * time.Second
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func maskKey(key string) string {
	if key == "" {
		return "none"
	}
	tail := key
	if len(key) > 4 {
		tail = key[len(key)-4:]
	}
	return "****" + tail
}

// Remote reviews trades through a chat completions model, fenced by a
// circuit breaker. Any failure surfaces as ErrUnavailable.
type Remote struct {
	client  *ChatClient
	breaker *circuit.Breaker
}

func NewRemote(client *ChatClient, breaker *circuit.Breaker) *Remote {
	return &Remote{client: client, breaker: breaker}
}

func (r *Remote) BreakerState() circuit.State { return r.breaker.State() }

func (r *Remote) Evaluate(ctx context.Context, req Request) (Response, error) {
	if !r.breaker.Allow() {
		return Response{}, fmt.Errorf("%w: breaker open", ErrUnavailable)
	}
	user := buildUserPrompt(req)
	logger.LogEvaluatorRequest(systemPrompt, user)

	raw, err := r.client.CallWithMessages(ctx, systemPrompt, user)
	if err != nil {
		r.breaker.RecordFailure()
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.LogEvaluatorResponse(raw)

	resp, err := parseReply(raw, req.Intent.Confidence)
	if err != nil {
		r.breaker.RecordFailure()
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.breaker.RecordSuccess()
	return resp, nil
}

func buildUserPrompt(req Request) string {
	intent, _ := json.MarshalIndent(map[string]any{
		"symbol":          req.Intent.Symbol,
		"action":          string(req.Intent.Action),
		"strike":          req.Intent.Strike,
		"expiration_days": req.Intent.ExpirationDays,
		"quantity":        req.Intent.RequestedQty,
		"confidence":      req.Intent.Confidence,
		"rationale":       req.Intent.Rationale,
	}, "", "  ")
	snap, _ := json.MarshalIndent(req.Context, "", "  ")
	return fmt.Sprintf("Proposed trade:\n%s\n\nMarket snapshot:\n%s\n", intent, snap)
}

// parseReply extracts the verdict from the model text. Code fences and
// surrounding prose are tolerated; the first JSON object wins. The
// confidence ceiling enforces that review never raises conviction.
func parseReply(raw string, ceiling float64) (Response, error) {
	text, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return Response{}, fmt.Errorf("reply contains no JSON payload")
	}
	parsed := gjson.Parse(text)
	approve := parsed.Get("approve")
	if !approve.Exists() {
		return Response{}, fmt.Errorf("reply missing approve field")
	}
	conf := ceiling
	if c := parsed.Get("confidence"); c.Exists() {
		conf = c.Float()
	}
	if conf > ceiling {
		conf = ceiling
	}
	if conf < 0 {
		conf = 0
	}
	return Response{
		Approve:            approve.Bool(),
		AdjustedConfidence: conf,
		Rationale:          strings.TrimSpace(parsed.Get("reasoning").String()),
	}, nil
}
