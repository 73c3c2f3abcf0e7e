package ldmodel

import (
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// opFn is a single operator's predicate, matching one user value against one preprocessed clause
// value. Incompatible types always yield false (spec §4.1).
type opFn func(userValue ldvalue.Value, clauseValue ldvalue.Value, pre valuePreprocessedData) bool

var operatorFns = map[Operator]opFn{
	OperatorIn:                 operatorIn,
	OperatorStartsWith:         operatorStartsWith,
	OperatorEndsWith:           operatorEndsWith,
	OperatorContains:           operatorContains,
	OperatorMatches:            operatorMatches,
	OperatorLessThan:           operatorLessThan,
	OperatorLessThanOrEqual:    operatorLessThanOrEqual,
	OperatorGreaterThan:        operatorGreaterThan,
	OperatorGreaterThanOrEqual: operatorGreaterThanOrEqual,
	OperatorBefore:             operatorBefore,
	OperatorAfter:              operatorAfter,
	OperatorSemVerEqual:        operatorSemVerEqual,
	OperatorSemVerLessThan:     operatorSemVerLessThan,
	OperatorSemVerGreaterThan:  operatorSemVerGreaterThan,
}

// ApplyOperator dispatches a single (userValue, clauseValue) pair to the named operator. It
// returns false for an unrecognized operator (including OperatorSegmentMatch, which the caller
// must intercept before reaching here, as ClauseMatchesUser does).
func ApplyOperator(op Operator, userValue ldvalue.Value, clauseValue ldvalue.Value, pre valuePreprocessedData) bool {
	if fn, ok := operatorFns[op]; ok {
		return fn(userValue, clauseValue, pre)
	}
	return false
}

func operatorIn(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	return valuesEqual(u, c)
}

// valuesEqual implements structural equality for ldvalue.Value (spec §3: "Equality is
// structural"). ldvalue.Value intentionally exposes no Equal method of its own, so operators that
// need equality (OperatorIn) compare canonical JSON encodings instead of reflect.DeepEqual, which
// would see distinct representations of the same number (e.g. int vs float64) as unequal.
func valuesEqual(a, b ldvalue.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	return a.JSONString() == b.JSONString()
}

func operatorStartsWith(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	us, uok := stringOf(u)
	cs, cok := stringOf(c)
	return uok && cok && strings.HasPrefix(us, cs)
}

func operatorEndsWith(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	us, uok := stringOf(u)
	cs, cok := stringOf(c)
	return uok && cok && strings.HasSuffix(us, cs)
}

func operatorContains(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	us, uok := stringOf(u)
	cs, cok := stringOf(c)
	return uok && cok && strings.Contains(us, cs)
}

func operatorMatches(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	us, ok := stringOf(u)
	if !ok || pre.regex == nil {
		return false
	}
	return pre.regex.MatchString(us)
}

func operatorLessThan(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	uf, uok := numberOf(u)
	cf, cok := numberOf(c)
	return uok && cok && uf < cf
}

func operatorLessThanOrEqual(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	uf, uok := numberOf(u)
	cf, cok := numberOf(c)
	return uok && cok && uf <= cf
}

func operatorGreaterThan(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	uf, uok := numberOf(u)
	cf, cok := numberOf(c)
	return uok && cok && uf > cf
}

func operatorGreaterThanOrEqual(u, c ldvalue.Value, _ valuePreprocessedData) bool {
	uf, uok := numberOf(u)
	cf, cok := numberOf(c)
	return uok && cok && uf >= cf
}

func operatorBefore(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	ut, ok := dateOf(u)
	if !ok || !pre.hasTime {
		return false
	}
	return ut.Before(pre.parsedTime)
}

func operatorAfter(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	ut, ok := dateOf(u)
	if !ok || !pre.hasTime {
		return false
	}
	return ut.After(pre.parsedTime)
}

func operatorSemVerEqual(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	uv, ok := semVerOf(u)
	return ok && pre.hasVer && uv.EQ(pre.parsedVer)
}

func operatorSemVerLessThan(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	uv, ok := semVerOf(u)
	return ok && pre.hasVer && uv.LT(pre.parsedVer)
}

func operatorSemVerGreaterThan(u, _ ldvalue.Value, pre valuePreprocessedData) bool {
	uv, ok := semVerOf(u)
	return ok && pre.hasVer && uv.GT(pre.parsedVer)
}

func stringOf(v ldvalue.Value) (string, bool) {
	if v.Type() != ldvalue.StringType {
		return "", false
	}
	return v.String(), true
}

func numberOf(v ldvalue.Value) (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	return v.Float64(), true
}

// dateOf coerces a user value to a time.Time per spec §4.1's "before"/"after" rule: a number is
// epoch milliseconds, a string is parsed as RFC3339/ISO8601, anything else is not a date.
func dateOf(v ldvalue.Value) (time.Time, bool) {
	if v.IsNumber() {
		ms := v.Float64()
		return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC(), true
	}
	if v.Type() == ldvalue.StringType {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

func semVerOf(v ldvalue.Value) (semver.Version, bool) {
	if v.Type() != ldvalue.StringType {
		return semver.Version{}, false
	}
	sv, err := parseSemVerLoose(v.String())
	if err != nil {
		return semver.Version{}, false
	}
	return sv, true
}
