package ldmodel

import (
	"encoding/json"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldreason"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// FeatureFlag is the pure data object an evaluator evaluates against a user (spec §3). It carries
// no behavior of its own beyond what PreprocessFlag fills in; Evaluate (package eval) reads it.
type FeatureFlag struct {
	Key                      string         `json:"key"`
	Version                  int            `json:"version"`
	On                       bool           `json:"on"`
	Prerequisites            []Prerequisite `json:"prerequisites"`
	Salt                     string         `json:"salt"`
	Targets                  []Target       `json:"targets"`
	Rules                    []Rule         `json:"rules"`
	Fallthrough              VariationOrRollout `json:"fallthrough"`
	OffVariation             *int           `json:"offVariation"`
	Variations               []ldvalue.Value `json:"variations"`
	ClientSide               bool           `json:"clientSide"`
	TrackEvents              bool           `json:"trackEvents"`
	TrackEventsFallthrough   bool           `json:"trackEventsFallthrough"`
	DebugEventsUntilDate     *int64         `json:"debugEventsUntilDate"`
	Deleted                  bool           `json:"deleted"`

	preprocessed flagPreprocessedData
}

// PreprocessedOffReason returns the precomputed EvaluationReason for this flag's off state; see
// PreprocessFlag.
func (f FeatureFlag) PreprocessedOffReason() ldreason.EvaluationReason { return f.preprocessed.offReason }

// PreprocessedFallthroughReason returns the precomputed EvaluationReason for the fallthrough path.
func (f FeatureFlag) PreprocessedFallthroughReason() ldreason.EvaluationReason {
	return f.preprocessed.fallthroughReason
}

// PreprocessedRuleReason returns the precomputed rule-match EvaluationReason for the rule at the
// given index; callers must only call this for an index within range of Rules.
func (f FeatureFlag) PreprocessedRuleReason(index int) ldreason.EvaluationReason {
	return f.preprocessed.ruleReasons[index]
}

// PreprocessedPrerequisiteFailedReason returns the precomputed EvaluationReason for a failed
// prerequisite with the given key.
func (f FeatureFlag) PreprocessedPrerequisiteFailedReason(prereqKey string) ldreason.EvaluationReason {
	if r, ok := f.preprocessed.prereqReasons[prereqKey]; ok {
		return r
	}
	return ldreason.NewEvalReasonPrerequisiteFailed(prereqKey)
}

// flagPreprocessedData holds values computed once by PreprocessFlag and reused by every
// evaluation, so the evaluator's hot path never allocates an EvaluationReason or re-walks a rule
// list to find an index (spec §4.3, §9 "polymorphic reason objects").
type flagPreprocessedData struct {
	fallthroughReason ldreason.EvaluationReason
	offReason         ldreason.EvaluationReason
	ruleReasons       []ldreason.EvaluationReason
	prereqReasons     map[string]ldreason.EvaluationReason
}

// Prerequisite is a dependency on another flag: this flag only proceeds past its off value if the
// prerequisite flag evaluates to the given variation (spec §3, §4.3 step 3).
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// Target is an explicit user-key-to-variation override (spec §3, §4.3 step 4).
type Target struct {
	Values    []string `json:"values"`
	Variation int      `json:"variation"`
}

// Rule is an ordered set of AND-ed clauses that, if all match, select a variation directly or via
// a rollout (spec §3, §4.3 step 5). ID is stable across flag versions and is precomputed into the
// rule-match reason by PreprocessFlag.
type Rule struct {
	ID          string
	Clauses     []Clause
	TrackEvents bool
	VariationOrRollout
}

type ruleJSON struct {
	ID          string   `json:"id"`
	Clauses     []Clause `json:"clauses"`
	TrackEvents bool     `json:"trackEvents"`
	Variation   *int     `json:"variation,omitempty"`
	Rollout     *Rollout `json:"rollout,omitempty"`
}

// MarshalJSON flattens VariationOrRollout's fields onto the rule object, matching the wire format
// in spec §3/§6 (encoding/json has no native support for embedding a struct's fields at the same
// level as its own without this).
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleJSON{
		ID:          r.ID,
		Clauses:     r.Clauses,
		TrackEvents: r.TrackEvents,
		Variation:   r.Variation,
		Rollout:     r.Rollout,
	})
}

// UnmarshalJSON reverses MarshalJSON.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var rj ruleJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	r.ID = rj.ID
	r.Clauses = rj.Clauses
	r.TrackEvents = rj.TrackEvents
	r.Variation = rj.Variation
	r.Rollout = rj.Rollout
	return nil
}

// VariationOrRollout is the shared shape used by Rule and FeatureFlag.Fallthrough: one of
// Variation or Rollout is populated, per spec §3's invariant. The evaluator uses Variation when it
// is set, even if Rollout is also set; a value with both unset is a malformed flag.
type VariationOrRollout struct {
	Variation *int     `json:"variation,omitempty"`
	Rollout   *Rollout `json:"rollout,omitempty"`
}

// Rollout assigns users to a variation probabilistically via bucketing (spec §4.2).
// Variations' weights should sum to 100000; the evaluator wraps any remainder into the last
// variation rather than treating it as an error (spec §9 resolved Open Question).
type Rollout struct {
	Variations []WeightedVariation `json:"variations"`
	BucketBy   *string             `json:"bucketBy,omitempty"`
}

// WeightedVariation is one entry of a Rollout: Variation gets Weight/100000 of the bucket space.
type WeightedVariation struct {
	Variation int `json:"variation"`
	Weight    int `json:"weight"`
}
