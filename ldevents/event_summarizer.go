package ldevents

import (
	"github.com/launchdarkly/go-server-sdk-flagcore/ldtime"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
)

// counterKey identifies one distinct (variation, flag version) combination within a flag's
// summary counters (spec §4.9).
type counterKey struct {
	variation int
	version   int
}

// counterValue is the running count and sampled value for one counterKey.
type counterValue struct {
	count int
	value ldvalue.Value
}

// flagSummary accumulates the counters for a single flag key across the current summarization
// window, plus the default value to report if no variation was ever recorded.
type flagSummary struct {
	defaultValue ldvalue.Value
	counters     map[counterKey]*counterValue
}

// eventSummary is a read-only snapshot of a summarizer's accumulated state, taken at flush time.
type eventSummary struct {
	startDate ldtime.UnixMillisecondTime
	endDate   ldtime.UnixMillisecondTime
	flags     map[string]flagSummary
}

// eventSummarizer accumulates per-flag evaluation counters instead of queuing a full event for
// every evaluation (spec §4.9's summary-invariance requirement: the summary counts must be the
// same regardless of how evaluations are batched into flush cycles).
type eventSummarizer struct {
	summary eventSummary
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{summary: newEventSummary()}
}

func newEventSummary() eventSummary {
	return eventSummary{flags: make(map[string]flagSummary)}
}

// summarizeEvent folds one flag evaluation into the current window, widening startDate/endDate
// and incrementing the counter for its (variation, version) pair.
func (s *eventSummarizer) summarizeEvent(evt FeatureRequestEvent) {
	if s.summary.startDate == 0 || evt.CreationDate < s.summary.startDate {
		s.summary.startDate = evt.CreationDate
	}
	if evt.CreationDate > s.summary.endDate {
		s.summary.endDate = evt.CreationDate
	}

	fs, ok := s.summary.flags[evt.Key]
	if !ok {
		fs = flagSummary{
			defaultValue: evt.Default,
			counters:     make(map[counterKey]*counterValue),
		}
	}
	key := counterKey{variation: evt.Variation, version: evt.Version}
	if c, ok := fs.counters[key]; ok {
		c.count++
	} else {
		fs.counters[key] = &counterValue{count: 1, value: evt.Value}
	}
	s.summary.flags[evt.Key] = fs
}

// snapshot returns the accumulated summary and clears the summarizer for the next window.
func (s *eventSummarizer) snapshot() eventSummary {
	ret := s.summary
	s.summary = newEventSummary()
	return ret
}
