package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Evaluator traffic is dumped to its own writer so the main log stays
// readable. Nothing is written until SetEvaluatorWriter is called.

var (
	evalMu  sync.Mutex
	evalLog *log.Logger
)

func SetEvaluatorWriter(w io.Writer) {
	evalMu.Lock()
	defer evalMu.Unlock()
	if w == nil {
		evalLog = nil
		return
	}
	evalLog = log.New(w, "", log.LstdFlags)
}

func dumpEvaluator(kind string, sections map[string]string, order []string) {
	evalMu.Lock()
	l := evalLog
	evalMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[evaluator][" + kind + "]\n")
	for _, title := range order {
		body := sections[title]
		if strings.TrimSpace(body) == "" {
			continue
		}
		b.WriteString("--- " + title + " ---\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogEvaluatorRequest records the prompts sent to the external evaluator.
func LogEvaluatorRequest(systemPrompt, userPrompt string) {
	dumpEvaluator("request",
		map[string]string{"SYSTEM": systemPrompt, "USER": userPrompt},
		[]string{"SYSTEM", "USER"})
}

// LogEvaluatorResponse records the raw evaluator reply before parsing.
func LogEvaluatorResponse(raw string) {
	dumpEvaluator("response", map[string]string{"RAW": raw}, []string{"RAW"})
}
