package groupflow

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentGroupTravel Intent = "group_travel"
	IntentWholeTeam   Intent = "whole_team"
	IntentApprove     Intent = "approve"
	IntentUnknown     Intent = "unknown"
)

// IntentClassifier maps free text to an intent. The machine only reacts to
// the intent, never to the raw phrasing.
type IntentClassifier interface {
	Classify(text string) Intent
}

type patternSet struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// PatternClassifier checks its sets in order and returns the first match.
type PatternClassifier struct {
	sets []patternSet
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{sets: []patternSet{
		{IntentApprove, compile(
			`\bapprove[ds]?\b`,
			`\bbook (it|them|everything|all)\b`,
			`\bconfirm(ed)?\b`,
			`\blooks good\b`,
			`\bgo ahead\b`,
			`\bship it\b`,
		)},
		{IntentWholeTeam, compile(
			`\b(whole|entire|full) team\b`,
			`\beveryone\b`,
			`\beverybody\b`,
			`\ball of us\b`,
		)},
		{IntentGroupTravel, compile(
			`\b(group|team)\b.*\b(travel|trips?|flights?|booking)\b`,
			`\b(travel|trips?|flights?)\b.*\b(group|team|colleagues|coworkers)\b`,
			`\bconference travel\b`,
			`\bwho('s| is) (going|attending)\b`,
		)},
	}}
}

func (c *PatternClassifier) Classify(text string) Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return IntentUnknown
	}
	for _, set := range c.sets {
		for _, p := range set.patterns {
			if p.MatchString(text) {
				return set.intent
			}
		}
	}
	return IntentUnknown
}
