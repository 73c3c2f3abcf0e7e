// Package eval implements the flag evaluation algorithm (spec §4.3): a pure function from flag,
// user, and data-provider callbacks to a value, variation index, reason, and the prerequisite
// feature-request events produced along the way.
package eval

import (
	"github.com/launchdarkly/go-server-sdk-flagcore/ldmodel"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldreason"
	"github.com/launchdarkly/go-server-sdk-flagcore/lduser"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// GetFlag looks up a flag by key; the bool is false if no such flag exists (or it is a tombstone).
type GetFlag func(key string) (ldmodel.FeatureFlag, bool)

// GetSegment looks up a segment by key; the bool is false if no such segment exists.
type GetSegment func(key string) (ldmodel.Segment, bool)

// PrerequisiteEvent is the feature-request side-event the evaluator emits for every prerequisite
// it evaluates while resolving a flag, whether or not that prerequisite was satisfied (spec §4.3
// step 3, §8 "reason-event symmetry").
type PrerequisiteEvent struct {
	FlagKey        string
	FlagVersion    int
	Value          ldvalue.Value
	VariationIndex int
	Reason         ldreason.EvaluationReason
	PrereqOf       string
}

// Evaluate computes the result of evaluating flag for user, per spec §4.3. getFlag and getSegment
// back the evaluator's recursive prerequisite and segmentMatch lookups. The returned
// []PrerequisiteEvent never includes an entry for a prerequisite key that getFlag could not
// resolve.
func Evaluate(
	flag ldmodel.FeatureFlag,
	user lduser.User,
	getFlag GetFlag,
	getSegment GetSegment,
) (ldreason.EvaluationDetail, []PrerequisiteEvent) {
	if user.GetKey() == "" {
		return errorDetail(ldreason.EvalErrorUserNotSpecified), nil
	}

	ev := &evaluation{
		getFlag:    getFlag,
		getSegment: getSegment,
		visited:    map[string]bool{flag.Key: true},
	}
	detail := ev.evaluateFlag(flag, user)
	return detail, ev.events
}

type evaluation struct {
	getFlag    GetFlag
	getSegment GetSegment
	visited    map[string]bool
	events     []PrerequisiteEvent
}

func (ev *evaluation) evaluateFlag(flag ldmodel.FeatureFlag, user lduser.User) ldreason.EvaluationDetail {
	if !flag.On {
		return ev.offValue(flag)
	}

	if detail, failed := ev.checkPrerequisites(flag, user); failed {
		return detail
	}

	for _, target := range flag.Targets {
		if ldmodel.TargetContainsKey(target, user.GetKey()) {
			return ev.variation(flag, target.Variation, ldreason.NewEvalReasonTargetMatch())
		}
	}

	for i, rule := range flag.Rules {
		if ev.ruleMatchesUser(rule, user) {
			return ev.variationOrRollout(flag, rule.VariationOrRollout, user, flag.PreprocessedRuleReason(i))
		}
	}

	return ev.variationOrRollout(flag, flag.Fallthrough, user, flag.PreprocessedFallthroughReason())
}

// checkPrerequisites evaluates each prerequisite in order (spec §4.3 step 3). It returns
// (offValueDetail, true) on the first unsatisfied or unresolvable-but-cyclic prerequisite; a
// prerequisite flag that cannot be fetched at all yields the same off-value/PrerequisiteFailed
// result but, per spec, emits no feature-request event for it.
func (ev *evaluation) checkPrerequisites(flag ldmodel.FeatureFlag, user lduser.User) (ldreason.EvaluationDetail, bool) {
	for _, prereq := range flag.Prerequisites {
		prereqFlag, ok := ev.getFlag(prereq.Key)
		if !ok {
			return ev.prerequisiteFailed(flag, prereq.Key), true
		}

		if ev.visited[prereq.Key] {
			// cycle: treat as an unsatisfied prerequisite without recursing further.
			return ev.prerequisiteFailed(flag, prereq.Key), true
		}
		ev.visited[prereq.Key] = true

		prereqDetail := ev.evaluateFlag(prereqFlag, user)

		ev.events = append(ev.events, PrerequisiteEvent{
			FlagKey:        prereqFlag.Key,
			FlagVersion:    prereqFlag.Version,
			Value:          prereqDetail.Value,
			VariationIndex: prereqDetail.VariationIndex,
			Reason:         prereqDetail.Reason,
			PrereqOf:       flag.Key,
		})

		if !prereqFlag.On || prereqDetail.VariationIndex != prereq.Variation {
			return ev.prerequisiteFailed(flag, prereq.Key), true
		}
	}
	return ldreason.EvaluationDetail{}, false
}

func (ev *evaluation) ruleMatchesUser(rule ldmodel.Rule, user lduser.User) bool {
	for _, clause := range rule.Clauses {
		if !ldmodel.ClauseMatchesUser(clause, user, ev.matchSegment) {
			return false
		}
	}
	return true
}

func (ev *evaluation) matchSegment(segmentKey string, user ldmodel.UserForMatching) bool {
	segment, ok := ev.getSegment(segmentKey)
	if !ok {
		return false
	}
	return ldmodel.SegmentContainsUser(segment, user)
}

// offValue implements spec §4.3's OffValue: the flag's OffVariation if set, else a value-less
// null result, always with reason Off.
func (ev *evaluation) offValue(flag ldmodel.FeatureFlag) ldreason.EvaluationDetail {
	reason := flag.PreprocessedOffReason()
	if flag.OffVariation == nil {
		return ldreason.EvaluationDetail{Value: ldvalue.Null(), VariationIndex: ldreason.NoVariation, Reason: reason}
	}
	return ev.variation(flag, *flag.OffVariation, reason)
}

func (ev *evaluation) prerequisiteFailed(flag ldmodel.FeatureFlag, prereqKey string) ldreason.EvaluationDetail {
	reason := flag.PreprocessedPrerequisiteFailedReason(prereqKey)
	if flag.OffVariation == nil {
		return ldreason.EvaluationDetail{Value: ldvalue.Null(), VariationIndex: ldreason.NoVariation, Reason: reason}
	}
	return ev.variation(flag, *flag.OffVariation, reason)
}

// variation looks up a variation index, yielding MalformedFlag if it's out of range.
func (ev *evaluation) variation(flag ldmodel.FeatureFlag, index int, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if index < 0 || index >= len(flag.Variations) {
		return errorDetail(ldreason.EvalErrorMalformedFlag)
	}
	return ldreason.EvaluationDetail{Value: flag.Variations[index], VariationIndex: index, Reason: reason}
}

// variationOrRollout implements spec §4.3's VariationOrRollout, including the resolved Open
// Question: a rollout bucket that exceeds every cumulative weight (an under-100000-weighted
// rollout, or floating-point rounding) resolves to the last variation rather than an error.
func (ev *evaluation) variationOrRollout(
	flag ldmodel.FeatureFlag,
	vr ldmodel.VariationOrRollout,
	user lduser.User,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	if vr.Variation != nil {
		return ev.variation(flag, *vr.Variation, reason)
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return errorDetail(ldreason.EvalErrorMalformedFlag)
	}

	bucketBy := "key"
	if vr.Rollout.BucketBy != nil {
		bucketBy = *vr.Rollout.BucketBy
	}
	bucket := ldmodel.Bucket(user, flag.Key, bucketBy, flag.Salt)

	var sum float64
	last := vr.Rollout.Variations[len(vr.Rollout.Variations)-1].Variation
	for _, wv := range vr.Rollout.Variations {
		sum += float64(wv.Weight) / 100000.0
		if bucket < sum {
			return ev.variation(flag, wv.Variation, reason)
		}
	}
	return ev.variation(flag, last, reason)
}

func errorDetail(kind ldreason.EvalErrorKind) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:          ldvalue.Null(),
		VariationIndex: ldreason.NoVariation,
		Reason:         ldreason.NewEvalReasonError(kind),
	}
}
