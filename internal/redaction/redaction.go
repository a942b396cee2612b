// redaction.go — PII scrubbing for captured error messages, context, and stack traces.
//
// Regex patterns are compiled once at construction and are thread-safe
// for concurrent use thereafter. Credit-card-like, email-like, and
// phone-like substrings in error messages and string context fields
// are replaced with constant tokens, then the message is truncated to
// a fixed length.
package redaction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/monitorcore/monitorcore/internal/util"
)

const (
	// MaxMessageLen is the truncation length for error messages and
	// context string fields.
	MaxMessageLen = 1000
	// MaxStackLen is the truncation length for a scrubbed stack trace.
	MaxStackLen = 2000
	// MaxStackFrames is the number of leading frames kept from a stack trace.
	MaxStackFrames = 10
)

type compiledPattern struct {
	token    string
	regex    *regexp.Regexp
	validate func(match string) bool
}

// builtinPatterns are always active. Credit-card, email, and phone
// cover the PII shapes most likely in free-text error messages; the
// secret-shaped patterns (bearer/basic/jwt/api-key) are a
// defense-in-depth net over arbitrary context objects that might
// otherwise leak a token into the collector.
var builtinPatterns = []struct {
	token    string
	pattern  string
	validate func(string) bool
}{
	{"[REDACTED_CREDIT_CARD]", `\b([0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4})\b`, luhnValid},
	{"[REDACTED_EMAIL]", `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`, nil},
	{"[REDACTED_PHONE]", `\b(\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`, nil},
	{"[REDACTED_SECRET]", `Bearer [A-Za-z0-9\-._~+/]+=*`, nil},
	{"[REDACTED_SECRET]", `eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+`, nil},
	{"[REDACTED_SECRET]", `(?i)(api[_-]?key|apikey|secret[_-]?key)\s*[:=]\s*\S+`, nil},
}

// Engine applies the redaction patterns to text. Safe for concurrent
// use once constructed (compiled regexps are immutable thereafter).
type Engine struct {
	patterns []compiledPattern
}

// NewEngine compiles the built-in pattern set.
func NewEngine() *Engine {
	e := &Engine{}
	for _, bp := range builtinPatterns {
		re, err := regexp.Compile(bp.pattern)
		if err != nil {
			continue // built-ins are known-good; defensive only
		}
		e.patterns = append(e.patterns, compiledPattern{
			token:    bp.token,
			regex:    re,
			validate: bp.validate,
		})
	}
	return e
}

// Scrub replaces PII-shaped substrings in s with constant tokens and
// truncates the result to MaxMessageLen.
func (e *Engine) Scrub(s string) string {
	if s == "" {
		return ""
	}
	for _, p := range e.patterns {
		if p.validate != nil {
			s = p.regex.ReplaceAllStringFunc(s, func(match string) string {
				if p.validate(match) {
					return p.token
				}
				return match
			})
		} else {
			s = p.regex.ReplaceAllString(s, p.token)
		}
	}
	return truncate(s, MaxMessageLen)
}

// ScrubStack scrubs a multi-line stack trace: keeps the first
// MaxStackFrames lines, strips absolute HTTP(S) origins down to a
// path-relative form, and truncates to MaxStackLen.
func (e *Engine) ScrubStack(stack string) string {
	if stack == "" {
		return ""
	}
	lines := strings.Split(stack, "\n")
	if len(lines) > MaxStackFrames {
		lines = lines[:MaxStackFrames]
	}
	for i, line := range lines {
		lines[i] = stripOrigin(e.Scrub(line))
	}
	return truncate(strings.Join(lines, "\n"), MaxStackLen)
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// stripOrigin rewrites every absolute URL in line down to its
// path-relative form via util.ExtractURLPath, so a stack frame reading
// "at https://app.example.com/bundle.js:120:4" becomes
// "at /bundle.js:120:4" instead of leaking the serving origin. A query
// string is dropped together with everything after it in the URL:
// "at https://app.example.com/bundle.js?v=3:120:4" becomes "at /bundle.js".
func stripOrigin(line string) string {
	return urlPattern.ReplaceAllStringFunc(line, util.ExtractURLPath)
}

// ScrubContext walks a context map and scrubs every string value it
// finds, recursing into nested maps and slices. The map is first
// JSON round-tripped to drop cycles and unserializable values.
func (e *Engine) ScrubContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		return map[string]any{}
	}
	var clean map[string]any
	if err := json.Unmarshal(raw, &clean); err != nil {
		return map[string]any{}
	}
	return e.scrubValue(clean).(map[string]any)
}

func (e *Engine) scrubValue(v any) any {
	switch t := v.(type) {
	case string:
		return e.Scrub(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = e.scrubValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = e.scrubValue(val)
		}
		return out
	default:
		return v
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// luhnValid checks whether a numeric string passes the Luhn checksum,
// used to avoid false-positive credit-card redaction on arbitrary
// 16-digit numbers (invoice ids, phone-adjacent digit runs).
func luhnValid(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}
