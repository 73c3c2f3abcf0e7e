// Package ldreason defines the EvaluationReason and EvaluationDetail types used to explain the
// result of a flag evaluation.
package ldreason

import (
	"encoding/json"
	"strconv"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// EvalReasonKind describes the general category of an EvaluationReason.
type EvalReasonKind string

const (
	// EvalReasonOff indicates that the flag was off and therefore returned its configured off value.
	EvalReasonOff EvalReasonKind = "OFF"
	// EvalReasonTargetMatch indicates that the user key was specifically targeted for this flag.
	EvalReasonTargetMatch EvalReasonKind = "TARGET_MATCH"
	// EvalReasonRuleMatch indicates that the user matched one of the flag's rules. RuleIndex and
	// RuleID are set.
	EvalReasonRuleMatch EvalReasonKind = "RULE_MATCH"
	// EvalReasonPrerequisiteFailed indicates that the flag was off because a prerequisite flag
	// either did not exist, was off, or did not return the desired variation. PrerequisiteKey is
	// set.
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	// EvalReasonFallthrough indicates that the flag was on but matched no target or rule.
	EvalReasonFallthrough EvalReasonKind = "FALLTHROUGH"
	// EvalReasonError indicates that the flag could not be evaluated; the caller's default value
	// was returned. ErrorKind is set.
	EvalReasonError EvalReasonKind = "ERROR"
)

// EvalErrorKind describes the specific error that produced an EvalReasonError reason.
type EvalErrorKind string

const (
	// EvalErrorClientNotReady indicates that a flag was requested before the data store held an
	// initial data set.
	EvalErrorClientNotReady EvalErrorKind = "CLIENT_NOT_READY"
	// EvalErrorFlagNotFound indicates that the requested flag key does not exist.
	EvalErrorFlagNotFound EvalErrorKind = "FLAG_NOT_FOUND"
	// EvalErrorMalformedFlag indicates that the flag data violated an evaluator invariant, such as
	// a rule with no variation or rollout, or an out-of-range variation index.
	EvalErrorMalformedFlag EvalErrorKind = "MALFORMED_FLAG"
	// EvalErrorUserNotSpecified indicates that the user passed to the evaluator had an empty key.
	EvalErrorUserNotSpecified EvalErrorKind = "USER_NOT_SPECIFIED"
	// EvalErrorWrongType indicates that a typed variation accessor did not match the flag's actual
	// value type.
	EvalErrorWrongType EvalErrorKind = "WRONG_TYPE"
	// EvalErrorException indicates an unexpected internal error.
	EvalErrorException EvalErrorKind = "EXCEPTION"
)

// EvaluationReason is a tagged variant explaining why a flag evaluation produced its result. Rule
// and prerequisite-failure instances are precomputed once per flag at deserialization time (see
// ldmodel.PreprocessFlag) and reused on every evaluation; construction here must stay allocation
// free on the hot path.
type EvaluationReason struct {
	kind            EvalReasonKind
	errorKind       EvalErrorKind
	ruleIndex       int
	ruleID          string
	prerequisiteKey string
}

// NewEvalReasonOff returns an EvaluationReason of kind EvalReasonOff.
func NewEvalReasonOff() EvaluationReason {
	return EvaluationReason{kind: EvalReasonOff}
}

// NewEvalReasonTargetMatch returns an EvaluationReason of kind EvalReasonTargetMatch.
func NewEvalReasonTargetMatch() EvaluationReason {
	return EvaluationReason{kind: EvalReasonTargetMatch}
}

// NewEvalReasonRuleMatch returns an EvaluationReason of kind EvalReasonRuleMatch.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID}
}

// NewEvalReasonPrerequisiteFailed returns an EvaluationReason of kind EvalReasonPrerequisiteFailed.
func NewEvalReasonPrerequisiteFailed(prerequisiteKey string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonPrerequisiteFailed, prerequisiteKey: prerequisiteKey}
}

// NewEvalReasonFallthrough returns an EvaluationReason of kind EvalReasonFallthrough.
func NewEvalReasonFallthrough() EvaluationReason {
	return EvaluationReason{kind: EvalReasonFallthrough}
}

// NewEvalReasonError returns an EvaluationReason of kind EvalReasonError.
func NewEvalReasonError(errorKind EvalErrorKind) EvaluationReason {
	return EvaluationReason{kind: EvalReasonError, errorKind: errorKind}
}

// GetKind returns the reason's kind.
func (r EvaluationReason) GetKind() EvalReasonKind { return r.kind }

// GetErrorKind returns the specific error kind, valid only when GetKind() == EvalReasonError.
func (r EvaluationReason) GetErrorKind() EvalErrorKind { return r.errorKind }

// GetRuleIndex returns the matched rule's index, valid only when GetKind() == EvalReasonRuleMatch.
func (r EvaluationReason) GetRuleIndex() int { return r.ruleIndex }

// GetRuleID returns the matched rule's stable ID, valid only when GetKind() == EvalReasonRuleMatch.
func (r EvaluationReason) GetRuleID() string { return r.ruleID }

// GetPrerequisiteKey returns the failed prerequisite's key, valid only when
// GetKind() == EvalReasonPrerequisiteFailed.
func (r EvaluationReason) GetPrerequisiteKey() string { return r.prerequisiteKey }

// String returns a short human-readable description, mainly for logging.
func (r EvaluationReason) String() string {
	switch r.kind {
	case EvalReasonRuleMatch:
		return string(r.kind) + "(" + strconv.Itoa(r.ruleIndex) + "," + r.ruleID + ")"
	case EvalReasonPrerequisiteFailed:
		return string(r.kind) + "(" + r.prerequisiteKey + ")"
	case EvalReasonError:
		return string(r.kind) + "(" + string(r.errorKind) + ")"
	default:
		return string(r.kind)
	}
}

// jsonReason mirrors the wire representation in spec §6.
type jsonReason struct {
	Kind            EvalReasonKind `json:"kind"`
	ErrorKind       *EvalErrorKind `json:"errorKind,omitempty"`
	RuleIndex       *int           `json:"ruleIndex,omitempty"`
	RuleID          *string        `json:"ruleId,omitempty"`
	PrerequisiteKey *string        `json:"prerequisiteKey,omitempty"`
}

// MarshalJSON writes the reason in the wire format described in spec §6.
func (r EvaluationReason) MarshalJSON() ([]byte, error) {
	out := jsonReason{Kind: r.kind}
	switch r.kind {
	case EvalReasonRuleMatch:
		idx := r.ruleIndex
		id := r.ruleID
		out.RuleIndex = &idx
		out.RuleID = &id
	case EvalReasonPrerequisiteFailed:
		key := r.prerequisiteKey
		out.PrerequisiteKey = &key
	case EvalReasonError:
		ek := r.errorKind
		out.ErrorKind = &ek
	}
	return json.Marshal(out)
}

// EvaluationDetail combines a flag evaluation's result value with the reason it was produced.
type EvaluationDetail struct {
	// Value is the result of the evaluation: one of the flag's variations, or the caller-supplied
	// default if evaluation did not succeed.
	Value ldvalue.Value
	// VariationIndex is the index of Value within the flag's variations, or -1 if the default
	// value was returned.
	VariationIndex int
	// Reason explains how Value was derived.
	Reason EvaluationReason
}

// IsDefaultValue returns true if this detail represents the default value (no variation index).
func (d EvaluationDetail) IsDefaultValue() bool {
	return d.VariationIndex == NoVariation
}

// NoVariation is the VariationIndex value used when no flag variation was selected.
const NoVariation = -1
