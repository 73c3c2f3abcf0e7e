package ldmodel

import "github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"

// TargetContainsKey reports whether the given user key is one of the target's explicit overrides
// (spec §4.3 step 4).
func TargetContainsKey(t Target, userKey string) bool {
	for _, v := range t.Values {
		if v == userKey {
			return true
		}
	}
	return false
}

// SegmentMatchFunc looks up a segment by key and reports whether the user is a member; the eval
// package supplies the concrete implementation backed by the data store. Passing it into
// ClauseMatchesUser lets ldmodel stay free of a data-store dependency while still supporting the
// segmentMatch operator.
type SegmentMatchFunc func(segmentKey string, user UserForMatching) bool

// UserForMatching is the minimal user surface clause and segment matching need. lduser.User
// satisfies it; kept as an interface here so ldmodel does not import lduser.
type UserForMatching interface {
	GetKey() string
	GetAttribute(name string) ldvalue.Value
}

// ClauseMatchesUser evaluates one clause against a user (spec §4.1, §4.3 step 5). matchSegment
// distinguishes flag-rule clause matching (segmentMatch recurses via matchSegment) from
// segment-rule clause matching, which must not recurse into another segmentMatch (spec §9
// "segment rule vs flag rule asymmetry") — callers evaluating a segment's own rules pass a nil
// matchSegment.
func ClauseMatchesUser(c Clause, user UserForMatching, matchSegment SegmentMatchFunc) bool {
	if c.Op == OperatorSegmentMatch {
		if matchSegment == nil {
			return false
		}
		for _, v := range c.Values {
			if v.Type() != ldvalue.StringType {
				continue
			}
			if matchSegment(v.String(), user) {
				return c.maybeNegate(true)
			}
		}
		return c.maybeNegate(false)
	}

	userValue := user.GetAttribute(c.Attribute)
	if userValue.IsNull() {
		return c.maybeNegate(false)
	}

	if userValue.Type() == ldvalue.ArrayType {
		for i := 0; i < userValue.Count(); i++ {
			if clauseMatchesAny(c, userValue.GetByIndex(i)) {
				return c.maybeNegate(true)
			}
		}
		return c.maybeNegate(false)
	}

	return c.maybeNegate(clauseMatchesAny(c, userValue))
}

func clauseMatchesAny(c Clause, userValue ldvalue.Value) bool {
	for i, cv := range c.Values {
		if ApplyOperator(c.Op, userValue, cv, c.preprocessed.values[i]) {
			return true
		}
	}
	return false
}

func (c Clause) maybeNegate(b bool) bool {
	if c.Negate {
		return !b
	}
	return b
}

// SegmentContainsUser implements segment membership (spec §4.4). Segment-rule clauses are matched
// with a nil SegmentMatchFunc, per §9's segment/flag rule asymmetry.
func SegmentContainsUser(s Segment, user UserForMatching) bool {
	key := user.GetKey()
	if s.preprocessed.includedSet[key] {
		return true
	}
	if s.preprocessed.excludedSet[key] {
		return false
	}
	for _, rule := range s.Rules {
		if segmentRuleMatchesUser(rule, user, s.Key, s.Salt) {
			return true
		}
	}
	return false
}

func segmentRuleMatchesUser(rule SegmentRule, user UserForMatching, segmentKey, salt string) bool {
	for _, clause := range rule.Clauses {
		if !ClauseMatchesUser(clause, user, nil) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	bucketBy := "key"
	if rule.BucketBy != nil {
		bucketBy = *rule.BucketBy
	}
	bucket := Bucket(user, segmentKey, bucketBy, salt)
	return bucket < float64(*rule.Weight)/100000.0
}
