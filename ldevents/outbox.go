package ldevents

import "github.com/launchdarkly/go-server-sdk-flagcore/ldlog"

// eventsOutbox buffers the full (non-summarized) events queued since the last flush, alongside the
// running summary counters, and tracks how many events were dropped because the buffer was full
// (spec §4.9).
type eventsOutbox struct {
	capacity      int
	loggers       ldlog.Loggers
	events        []Event
	summarizer    eventSummarizer
	droppedEvents int
	capacityWarned bool
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		capacity:   capacity,
		loggers:    loggers,
		summarizer: newEventSummarizer(),
	}
}

// addEvent appends a full event to the outbox, dropping it (and counting the drop) if the buffer
// is already at capacity.
func (o *eventsOutbox) addEvent(evt Event) {
	if o.capacity > 0 && len(o.events) >= o.capacity {
		if !o.capacityWarned {
			o.capacityWarned = true
			o.loggers.Warn("Exceeded event queue capacity; increase capacity to avoid dropping events")
		}
		o.droppedEvents++
		return
	}
	o.capacityWarned = false
	o.events = append(o.events, evt)
}

// addToSummary folds a feature request event into the running counters. Other event kinds do not
// contribute to the summary.
func (o *eventsOutbox) addToSummary(evt Event) {
	if fe, ok := evt.(FeatureRequestEvent); ok {
		o.summarizer.summarizeEvent(fe)
	}
}

// getPayload returns a snapshot of the currently-buffered events and summary, without clearing
// them; callers must call clear() separately once the payload has been handed off, so that a
// payload that fails to get picked up by a flush worker leaves the outbox intact.
func (o *eventsOutbox) getPayload() flushPayload {
	return flushPayload{
		events:  o.events,
		summary: o.summarizer.summary,
	}
}

// clear empties the event buffer and resets the summary window. droppedEvents is intentionally
// left untouched here; it is reset only when a diagnostic event reports it (spec §4.11).
func (o *eventsOutbox) clear() {
	o.events = nil
	o.summarizer.snapshot()
}
