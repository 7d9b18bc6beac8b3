package nlu

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const slotMarker = "*"

// Pattern is one compiled phrase template.
type Pattern interface {
	Match(utterance string) (slot string, ok bool)
	String() string
}

// Literal matches anywhere in the utterance. No word boundaries: "hi" fires
// inside "this".
type Literal struct {
	Text string
}

func (l Literal) Match(utterance string) (string, bool) {
	return "", strings.Contains(utterance, l.Text)
}

func (l Literal) String() string { return l.Text }

// SlotCapture matches Prefix, one or more characters, Suffix. Spaces in the
// template match any run of whitespace, including none.
type SlotCapture struct {
	Prefix string
	Suffix string
	re     *regexp.Regexp
}

func NewSlotCapture(prefix, suffix string) SlotCapture {
	expr := "(?i)" + loosen(prefix) + "(.+)" + loosen(suffix)
	return SlotCapture{
		Prefix: prefix,
		Suffix: suffix,
		re:     regexp.MustCompile(expr),
	}
}

func loosen(s string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(s), " ", `\s*`)
}

func (c SlotCapture) Match(utterance string) (string, bool) {
	m := c.re.FindStringSubmatch(utterance)
	if m == nil {
		return "", false
	}
	slot := strings.TrimSpace(m[1])
	return slot, slot != ""
}

// Framed reports whether literal text sits on both sides of the slot.
func (c SlotCapture) Framed() bool {
	return strings.TrimSpace(c.Prefix) != "" && strings.TrimSpace(c.Suffix) != ""
}

func (c SlotCapture) String() string { return c.Prefix + slotMarker + c.Suffix }

func Compile(template string) (Pattern, error) {
	t := strings.ToLower(strings.TrimSpace(template))
	if t == "" {
		return nil, errors.New("empty phrase")
	}

	switch strings.Count(t, slotMarker) {
	case 0:
		return Literal{Text: t}, nil
	case 1:
		prefix, suffix, _ := strings.Cut(t, slotMarker)
		return NewSlotCapture(prefix, suffix), nil
	default:
		return nil, fmt.Errorf("phrase %q: more than one slot", template)
	}
}

type MatchResult struct {
	Intent   Intent
	Slot     string
	Feedback string
}

type entry struct {
	rule    int
	pattern Pattern
}

// Matcher runs utterances against a compiled rule table. Framed slot captures
// ("add * to cart") are tried first, then every other pattern in declaration
// order. The first hit wins.
type Matcher struct {
	rules   []Rule
	entries []entry
}

func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: rules}

	var framed, rest []entry
	for ri, r := range rules {
		if len(r.Phrases) == 0 {
			return nil, fmt.Errorf("rule %s: no phrases", r.Intent)
		}
		for _, phrase := range r.Phrases {
			p, err := Compile(phrase)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Intent, err)
			}
			e := entry{rule: ri, pattern: p}
			if c, ok := p.(SlotCapture); ok && c.Framed() {
				framed = append(framed, e)
			} else {
				rest = append(rest, e)
			}
		}
	}

	m.entries = append(framed, rest...)
	return m, nil
}

func MustMatcher(rules []Rule) *Matcher {
	m, err := NewMatcher(rules)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matcher) Match(utterance string) (MatchResult, bool) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return MatchResult{}, false
	}

	for _, e := range m.entries {
		slot, ok := e.pattern.Match(text)
		if !ok {
			continue
		}
		r := m.rules[e.rule]
		return MatchResult{
			Intent:   r.Intent,
			Slot:     slot,
			Feedback: r.feedback(slot),
		}, true
	}

	return MatchResult{}, false
}

var defaultMatcher = MustMatcher(Rules)

func Match(utterance string) (MatchResult, bool) {
	return defaultMatcher.Match(utterance)
}
