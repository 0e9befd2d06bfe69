// Package scrub redacts sensitive values from captured wire transcripts so
// they can be logged safely. Scrubbing is a pure string transform: no
// network, no side effects, and idempotent — scrubbing an already-scrubbed
// transcript changes nothing.
package scrub

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// Marker replaces every redacted value.
const Marker = "[FILTERED]"

// groupedPAN matches 13-19 digit card numbers split into groups by spaces or
// dashes, e.g. "4111 1111 1111 1111".
var groupedPAN = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

type rule struct {
	re      *regexp.Regexp
	replace string
}

// Scrubber rewrites transcripts. Adapters build one with their configured
// secrets plus the field patterns of their wire format, and reuse it across
// calls; it is safe for concurrent use once built.
type Scrubber struct {
	rules []rule
}

func New() *Scrubber {
	return &Scrubber{}
}

// Secret registers a literal secret (API key, password, card number, CVV).
// The plain value and its standard Base64 encoding are both redacted.
// Empty and whitespace-only values are ignored; field-level blanking for
// those comes from Field patterns.
func (s *Scrubber) Secret(value string) *Scrubber {
	if strings.TrimSpace(value) == "" {
		return s
	}
	s.literal(value)
	s.literal(base64.StdEncoding.EncodeToString([]byte(value)))
	return s
}

// BasicAuth registers the Base64 form of "user:password" as produced by an
// Authorization: Basic header, along with each component.
func (s *Scrubber) BasicAuth(user, password string) *Scrubber {
	s.Secret(password)
	s.literal(base64.StdEncoding.EncodeToString([]byte(user + ":" + password)))
	return s
}

// CardNumber registers a primary account number, covering the plain,
// digit-grouped, and Base64 renderings.
func (s *Scrubber) CardNumber(number string) *Scrubber {
	s.Secret(number)
	return s
}

// Pattern registers a regexp whose every match is replaced by the marker.
func (s *Scrubber) Pattern(re *regexp.Regexp) *Scrubber {
	s.rules = append(s.rules, rule{re: re})
	return s
}

// JSONField redacts the string value of a JSON field, e.g.
// JSONField("cvv") turns "cvv":"123" into "cvv":"[FILTERED]". The field is
// rewritten even when its value is empty or whitespace, so the transcript
// never reveals whether a value was sent.
func (s *Scrubber) JSONField(name string) *Scrubber {
	re := regexp.MustCompile(`("` + regexp.QuoteMeta(name) + `"\s*:\s*")([^"]*)(")`)
	s.rules = append(s.rules, rule{re: re, replace: "${1}" + Marker + "${3}"})
	return s
}

// XMLElement redacts the text content of an XML element.
func (s *Scrubber) XMLElement(name string) *Scrubber {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(<` + q + `(?:\s[^>]*)?>)([^<]*)(</` + q + `>)`)
	s.rules = append(s.rules, rule{re: re, replace: "${1}" + Marker + "${3}"})
	return s
}

// FormField redacts the value of a form-encoded or key=value response field.
func (s *Scrubber) FormField(name string) *Scrubber {
	re := regexp.MustCompile(`(\b` + regexp.QuoteMeta(name) + `=)([^&\s]*)`)
	s.rules = append(s.rules, rule{re: re, replace: "${1}" + Marker})
	return s
}

func (s *Scrubber) literal(value string) {
	s.rules = append(s.rules, rule{
		re:      regexp.MustCompile(regexp.QuoteMeta(value)),
		replace: Marker,
	})
}

// Scrub returns a copy of transcript with every registered secret and field
// value replaced by the marker. Grouped card numbers whose digits match a
// registered card number are caught even when the provider re-formats them.
func (s *Scrubber) Scrub(transcript string) string {
	out := transcript
	for _, r := range s.rules {
		if r.replace == "" {
			out = r.re.ReplaceAllString(out, Marker)
		} else {
			out = r.re.ReplaceAllString(out, r.replace)
		}
	}
	out = s.scrubGroupedPANs(out)
	return out
}

// scrubGroupedPANs rewrites digit-grouped renderings of registered card
// numbers. Only sequences whose digits equal a registered number are
// touched, so order ids and timestamps survive.
func (s *Scrubber) scrubGroupedPANs(transcript string) string {
	return groupedPAN.ReplaceAllStringFunc(transcript, func(m string) string {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		for _, r := range s.rules {
			if r.replace == Marker && r.re.String() == regexp.QuoteMeta(digits) {
				return Marker
			}
		}
		return m
	})
}
