// cmd/voxkeyd/logging.go
package main

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

func initLogging() {
	logrus.SetFormatter(&redactingFormatter{inner: &logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	}})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

var (
	redactMu sync.Mutex
	secrets  = map[string]struct{}{}

	secretReplacer atomic.Value // stores *strings.Replacer
)

// addSecret registers a string to be scrubbed from all log output. The
// control token and the API key go through here.
func addSecret(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}

	redactMu.Lock()
	defer redactMu.Unlock()
	if _, ok := secrets[s]; ok {
		return
	}
	secrets[s] = struct{}{}

	pairs := make([]string, 0, len(secrets)*2)
	for sec := range secrets {
		pairs = append(pairs, sec, "[redacted]")
	}
	secretReplacer.Store(strings.NewReplacer(pairs...))
}

type redactingFormatter struct {
	inner logrus.Formatter
}

func (f *redactingFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b, err := f.inner.Format(e)
	if err != nil {
		return nil, err
	}
	if r, ok := secretReplacer.Load().(*strings.Replacer); ok && r != nil {
		return []byte(r.Replace(string(b))), nil
	}
	return b, nil
}

// safePreview logs only the shape of user text, never the content.
func safePreview(s string) string {
	const max = 3
	runes := []rune(s)
	if len(runes) == 0 {
		return `"" (len=0)`
	}
	if len(runes) > max {
		return `"` + string(runes[:max]) + `..." (len=` + itoa(len(runes)) + ")"
	}
	return `"` + string(runes) + `" (len=` + itoa(len(runes)) + ")"
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
