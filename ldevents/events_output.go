package ldevents

import (
	"github.com/launchdarkly/go-server-sdk-flagcore/ldreason"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldtime"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// eventOutputFormatter converts the internal event and summary representations into the wire
// format described in spec §6, scrubbing user details along the way.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

type featureEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	Version      int                        `json:"version"`
	Variation    *int                       `json:"variation,omitempty"`
	Value        ldvalue.Value              `json:"value"`
	Default      ldvalue.Value              `json:"default"`
	PrereqOf     string                     `json:"prereqOf,omitempty"`
	UserKey      string                     `json:"userKey,omitempty"`
	User         *filteredUser              `json:"user,omitempty"`
	Reason       *ldreason.EvaluationReason `json:"reason"`
}

type identifyEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	User         filteredUser               `json:"user"`
}

type indexEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	User         filteredUser               `json:"user"`
}

type customEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	UserKey      string                     `json:"userKey,omitempty"`
	User         *filteredUser              `json:"user,omitempty"`
	Data         ldvalue.Value              `json:"data"`
	MetricValue  *float64                   `json:"metricValue,omitempty"`
}

type summaryCounterOutput struct {
	Value     ldvalue.Value `json:"value"`
	Version   int           `json:"version,omitempty"`
	Variation *int          `json:"variation,omitempty"`
	Count     int           `json:"count"`
}

type summaryFlagOutput struct {
	Default  ldvalue.Value          `json:"default"`
	Counters []summaryCounterOutput `json:"counters"`
}

type summaryEventOutput struct {
	Kind      string                       `json:"kind"`
	StartDate ldtime.UnixMillisecondTime   `json:"startDate"`
	EndDate   ldtime.UnixMillisecondTime   `json:"endDate"`
	Features  map[string]summaryFlagOutput `json:"features"`
}

// makeOutputEvents converts one flush payload's worth of full events and summary counters into
// the slice of wire-format events to be JSON-marshaled and posted (spec §6).
func (f eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []interface{} {
	var out []interface{}
	for _, evt := range events {
		if oe := f.makeOutputEvent(evt); oe != nil {
			out = append(out, oe)
		}
	}
	if len(summary.flags) > 0 {
		out = append(out, f.makeSummaryEvent(summary))
	}
	return out
}

func variationPointer(variation int) *int {
	if variation == ldreason.NoVariation {
		return nil
	}
	v := variation
	return &v
}

func (f eventOutputFormatter) makeOutputEvent(evt Event) interface{} {
	switch e := evt.(type) {
	case FeatureRequestEvent:
		kind := "feature"
		if e.Debug {
			kind = "debug"
		}
		fe := featureEventOutput{
			Kind:         kind,
			CreationDate: e.CreationDate,
			Key:          e.Key,
			Version:      e.Version,
			Variation:    variationPointer(e.Variation),
			Value:        e.Value,
			Default:      e.Default,
		}
		if e.HasPrereqOf {
			fe.PrereqOf = e.PrereqOf
		}
		if e.Reason.GetKind() != "" {
			r := e.Reason
			fe.Reason = &r
		}
		if f.config.InlineUsersInEvents || kind == "debug" {
			fu := f.userFilter.scrubUser(e.User).filteredUser
			fe.User = &fu
		} else {
			fe.UserKey = e.User.GetKey()
		}
		return fe
	case IdentifyEvent:
		return identifyEventOutput{
			Kind:         "identify",
			CreationDate: e.CreationDate,
			Key:          e.User.GetKey(),
			User:         f.userFilter.scrubUser(e.User).filteredUser,
		}
	case IndexEvent:
		return indexEventOutput{
			Kind:         "index",
			CreationDate: e.CreationDate,
			User:         f.userFilter.scrubUser(e.User).filteredUser,
		}
	case CustomEvent:
		ce := customEventOutput{
			Kind:         "custom",
			CreationDate: e.CreationDate,
			Key:          e.Key,
			Data:         e.Data,
		}
		if e.HasMetricValue {
			mv := e.MetricValue
			ce.MetricValue = &mv
		}
		if f.config.InlineUsersInEvents {
			fu := f.userFilter.scrubUser(e.User).filteredUser
			ce.User = &fu
		} else {
			ce.UserKey = e.User.GetKey()
		}
		return ce
	default:
		return nil
	}
}

func (f eventOutputFormatter) makeSummaryEvent(summary eventSummary) summaryEventOutput {
	features := make(map[string]summaryFlagOutput, len(summary.flags))
	for key, fs := range summary.flags {
		counters := make([]summaryCounterOutput, 0, len(fs.counters))
		for ck, cv := range fs.counters {
			sc := summaryCounterOutput{
				Value:     cv.value,
				Version:   ck.version,
				Variation: variationPointer(ck.variation),
				Count:     cv.count,
			}
			counters = append(counters, sc)
		}
		features[key] = summaryFlagOutput{
			Default:  fs.defaultValue,
			Counters: counters,
		}
	}
	return summaryEventOutput{
		Kind:      "summary",
		StartDate: summary.startDate,
		EndDate:   summary.endDate,
		Features:  features,
	}
}
