package ldevents

import (
	"github.com/launchdarkly/go-server-sdk-flagcore/ldreason"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldtime"
	"github.com/launchdarkly/go-server-sdk-flagcore/lduser"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// NoVariation is the sentinel Variation value for an evaluation that produced no variation index,
// either because the flag was off with no off variation or because the flag was not found at all.
const NoVariation = ldreason.NoVariation

// Event is implemented by every analytics event type the event processor can queue.
type Event interface {
	// GetBase returns the fields common to all event types.
	GetBase() BaseEvent
}

// BaseEvent holds the fields every event type carries: when it happened and which user it
// concerns.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	User         lduser.User
}

// GetBase implements Event.
func (b BaseEvent) GetBase() BaseEvent { return b }

// IdentifyEvent represents an explicit request to register user details with LaunchDarkly.
type IdentifyEvent struct {
	BaseEvent
}

// IndexEvent is synthesized the first time the event processor sees a previously-unknown user, so
// the user's attributes are recorded even if no identify event was ever sent for them.
type IndexEvent struct {
	BaseEvent
}

// CustomEvent represents a call to a custom-event tracking API.
type CustomEvent struct {
	BaseEvent
	Key            string
	Data           ldvalue.Value
	HasMetricValue bool
	MetricValue    float64
}

// FeatureRequestEvent represents a single flag evaluation.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Version              int
	Variation            int
	Value                ldvalue.Value
	Default              ldvalue.Value
	Reason               ldreason.EvaluationReason
	PrereqOf             string
	HasPrereqOf          bool
	TrackEvents          bool
	Debug                bool
	DebugEventsUntilDate *ldtime.UnixMillisecondTime
}

// FlagEventProperties is the subset of flag state the event factory needs in order to decide
// whether and how to record an evaluation. Declared locally, rather than importing the flag model
// package directly, for the same reason ldmodel declares userAttributeGetter instead of importing
// lduser: the evaluator's caller can satisfy this with whatever flag representation it has at
// hand.
type FlagEventProperties interface {
	GetKey() string
	GetVersion() int
	IsFullEventTrackingEnabled() bool
	GetDebugEventsUntilDate() ldtime.UnixMillisecondTime
	IsExperimentationEnabled(reason ldreason.EvaluationReason) bool
}

// EventFactory builds analytics events with a consistent creation timestamp source. When
// withReasons is true, every evaluation event carries its reason; otherwise a successful
// evaluation's reason is attached only if the flag reports experimentation enabled for it.
type EventFactory struct {
	withReasons bool
	timestampFn func() ldtime.UnixMillisecondTime
}

// NewEventFactory constructs an EventFactory. A nil timestampFn defaults to the wall clock.
func NewEventFactory(withReasons bool, timestampFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timestampFn == nil {
		timestampFn = now
	}
	return EventFactory{withReasons: withReasons, timestampFn: timestampFn}
}

// NewIdentifyEvent creates an IdentifyEvent for the given user.
func (f EventFactory) NewIdentifyEvent(user lduser.User) IdentifyEvent {
	return IdentifyEvent{BaseEvent{CreationDate: f.timestampFn(), User: user}}
}

// NewCustomEvent creates a CustomEvent. hasMetricValue distinguishes "no metric value was passed"
// from a metric value that happens to be zero.
func (f EventFactory) NewCustomEvent(
	key string,
	user lduser.User,
	data ldvalue.Value,
	hasMetricValue bool,
	metricValue float64,
) CustomEvent {
	return CustomEvent{
		BaseEvent:      BaseEvent{CreationDate: f.timestampFn(), User: user},
		Key:            key,
		Data:           data,
		HasMetricValue: hasMetricValue,
		MetricValue:    metricValue,
	}
}

// NewSuccessfulEvalEvent creates a FeatureRequestEvent for a flag evaluation that resolved to a
// known variation.
func (f EventFactory) NewSuccessfulEvalEvent(
	flag FlagEventProperties,
	user lduser.User,
	variation int,
	value ldvalue.Value,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	prereqOf string,
) FeatureRequestEvent {
	fe := FeatureRequestEvent{
		BaseEvent:   BaseEvent{CreationDate: f.timestampFn(), User: user},
		Key:         flag.GetKey(),
		Version:     flag.GetVersion(),
		Variation:   variation,
		Value:       value,
		Default:     defaultVal,
		TrackEvents: flag.IsFullEventTrackingEnabled(),
	}
	if prereqOf != "" {
		fe.PrereqOf = prereqOf
		fe.HasPrereqOf = true
	}
	if f.withReasons || flag.IsExperimentationEnabled(reason) {
		fe.Reason = reason
	}
	if debugDate := flag.GetDebugEventsUntilDate(); debugDate != 0 {
		d := debugDate
		fe.DebugEventsUntilDate = &d
	}
	return fe
}

// NewUnknownFlagEvaluationEvent creates a FeatureRequestEvent for a flag key the data store had no
// record of. There is no version, variation, or track-events setting to report.
func (f EventFactory) NewUnknownFlagEvaluationEvent(
	key string,
	user lduser.User,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	fe := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: f.timestampFn(), User: user},
		Key:       key,
		Variation: ldreason.NoVariation,
		Value:     defaultVal,
		Default:   defaultVal,
	}
	if f.withReasons {
		fe.Reason = reason
	}
	return fe
}
