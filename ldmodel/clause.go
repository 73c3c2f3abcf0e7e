package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// Operator names one of the closed set of binary predicates a Clause can apply (spec §4.1).
// Values serialize as their lowercase wire name.
type Operator string

// The complete set of operators. SegmentMatch is recognized here only so that flag JSON round
// trips; it is handled by ClauseMatchesUser (match.go) through a caller-supplied segment lookup,
// not in operators.go, because it requires a segment lookup the other operators don't need.
const (
	OperatorIn                 Operator = "in"
	OperatorEndsWith           Operator = "endsWith"
	OperatorStartsWith         Operator = "startsWith"
	OperatorMatches            Operator = "matches"
	OperatorContains           Operator = "contains"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

// Clause is a single negatable predicate: does the user's named attribute match any of Values
// under Op? (spec §3/§4.1)
type Clause struct {
	Attribute string          `json:"attribute"`
	Op        Operator        `json:"op"`
	Values    []ldvalue.Value `json:"values"`
	Negate    bool            `json:"negate"`

	preprocessed clausePreprocessedData
}

// clausePreprocessedData holds per-value parses computed once at PreprocessFlag/PreprocessSegment
// time so the evaluator's hot path never parses a regex, date, or semver string per evaluation.
type clausePreprocessedData struct {
	values []valuePreprocessedData
}

type valuePreprocessedData struct {
	regex      *regexp.Regexp // non-nil if this value parses as a regex, for OperatorMatches
	parsedTime time.Time
	hasTime    bool
	parsedVer  semver.Version
	hasVer     bool
}
