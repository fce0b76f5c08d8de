// Package ingest turns raw outside input (chat exports, JSON submissions,
// inbox files) into pipeline records. Bad items are quarantined and counted,
// never fatal to a cycle.
package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Chat exports arrive line-oriented with the envelope
// [M/D/YY, HH:MM:SS] Name: message
var chatEnvelope = regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2,4}),\s*(\d{1,2}:\d{2}:\d{2})\]\s*([^:]+):\s*(.+)$`)

// HashOriginator turns a chat display name into an opaque id. Raw names
// never travel past this point.
func HashOriginator(name string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(name)))
	return hex.EncodeToString(sum[:8])
}

// ChatParser parses exported chat text into RawMessages.
type ChatParser struct {
	SourceTag string
	Location  *time.Location
}

// Parse reads an export and returns the well-formed entries plus the count
// of malformed envelope lines that were skipped. Lines that do not open
// with '[' are treated as continuations and ignored.
func (p *ChatParser) Parse(r io.Reader) ([]types.RawMessage, int) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	tag := p.SourceTag
	if tag == "" {
		tag = "chat"
	}

	var (
		messages    []types.RawMessage
		quarantined int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "[") {
			continue
		}
		m := chatEnvelope.FindStringSubmatch(line)
		if m == nil {
			quarantined++
			continue
		}
		ts, err := parseEnvelopeTime(m[1], m[2], loc)
		if err != nil {
			quarantined++
			continue
		}
		messages = append(messages, types.RawMessage{
			OriginatorID: HashOriginator(m[3]),
			Timestamp:    ts.UTC(),
			Text:         strings.TrimSpace(m[4]),
			SourceTag:    tag,
		})
	}
	if err := scanner.Err(); err != nil {
		logger.Warnf("chat parse: scanner stopped early: %v", err)
	}
	return messages, quarantined
}

func parseEnvelopeTime(date, clock string, loc *time.Location) (time.Time, error) {
	stamp := date + " " + clock
	ts, err := time.ParseInLocation("1/2/06 15:04:05", stamp, loc)
	if err == nil {
		return ts, nil
	}
	return time.ParseInLocation("1/2/2006 15:04:05", stamp, loc)
}
