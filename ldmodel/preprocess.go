package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldreason"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// PreprocessFlag fills in every value the evaluator's hot path must not compute on demand:
// per-rule and per-prerequisite EvaluationReason instances (spec §4.3, §9), and per-clause value
// parses for the matches/before/after/semVer* operators (spec §4.1). FeatureFlag has no
// UnmarshalJSON of its own: the data-source and datakinds decoders call this after unmarshaling,
// and any other caller (e.g. tests, or a plain json.Unmarshal) must call this once before passing
// the flag to Evaluate.
func PreprocessFlag(f *FeatureFlag) {
	f.preprocessed.offReason = ldreason.NewEvalReasonOff()
	f.preprocessed.fallthroughReason = ldreason.NewEvalReasonFallthrough()

	f.preprocessed.ruleReasons = make([]ldreason.EvaluationReason, len(f.Rules))
	for i, rule := range f.Rules {
		f.preprocessed.ruleReasons[i] = ldreason.NewEvalReasonRuleMatch(i, rule.ID)
		for ci := range rule.Clauses {
			preprocessClause(&f.Rules[i].Clauses[ci])
		}
	}

	f.preprocessed.prereqReasons = make(map[string]ldreason.EvaluationReason, len(f.Prerequisites))
	for _, p := range f.Prerequisites {
		f.preprocessed.prereqReasons[p.Key] = ldreason.NewEvalReasonPrerequisiteFailed(p.Key)
	}
}

// PreprocessSegment builds the included/excluded membership sets and preprocesses segment-rule
// clause values, for the same reason PreprocessFlag does (spec §4.4).
func PreprocessSegment(s *Segment) {
	if len(s.Included) > 0 {
		s.preprocessed.includedSet = make(map[string]bool, len(s.Included))
		for _, k := range s.Included {
			s.preprocessed.includedSet[k] = true
		}
	}
	if len(s.Excluded) > 0 {
		s.preprocessed.excludedSet = make(map[string]bool, len(s.Excluded))
		for _, k := range s.Excluded {
			s.preprocessed.excludedSet[k] = true
		}
	}
	for ri := range s.Rules {
		for ci := range s.Rules[ri].Clauses {
			preprocessClause(&s.Rules[ri].Clauses[ci])
		}
	}
}

func preprocessClause(c *Clause) {
	c.preprocessed.values = make([]valuePreprocessedData, len(c.Values))
	for i, v := range c.Values {
		if v.Type() != ldvalue.StringType {
			continue
		}
		s := v.String()
		var pre valuePreprocessedData
		if c.Op == OperatorMatches {
			if re, err := regexp.Compile(s); err == nil {
				pre.regex = re
			}
		}
		if c.Op == OperatorBefore || c.Op == OperatorAfter {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				pre.parsedTime = t.UTC()
				pre.hasTime = true
			}
		}
		if c.Op == OperatorSemVerEqual || c.Op == OperatorSemVerLessThan || c.Op == OperatorSemVerGreaterThan {
			if sv, err := parseSemVerLoose(s); err == nil {
				pre.parsedVer = sv
				pre.hasVer = true
			}
		}
		c.preprocessed.values[i] = pre
	}
}

// parseSemVerLoose parses a semantic version string, defaulting a missing minor or patch
// component to 0 (spec §4.1: "loose: missing minor/patch default to 0").
func parseSemVerLoose(s string) (semver.Version, error) {
	if v, err := semver.Parse(s); err == nil {
		return v, nil
	}
	splitAt := len(s)
	for i, r := range s {
		if r == '-' || r == '+' {
			splitAt = i
			break
		}
	}
	core, rest := s[:splitAt], s[splitAt:]
	dots := 0
	for _, r := range core {
		if r == '.' {
			dots++
		}
	}
	for i := dots; i < 2; i++ {
		core += ".0"
	}
	return semver.Parse(core + rest)
}
