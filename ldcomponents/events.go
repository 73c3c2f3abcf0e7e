package ldcomponents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldevents"
	"github.com/launchdarkly/go-server-sdk-flagcore/subsystems"
)

// DefaultEventsBaseURI is the default value for EventProcessorBuilder.BaseURI.
const DefaultEventsBaseURI = "https://events.launchdarkly.com"

// DefaultEventsCapacity is the default value for EventProcessorBuilder.Capacity.
const DefaultEventsCapacity = 10000

// EventProcessorBuilder configures the analytics event processor (spec §4.9).
type EventProcessorBuilder struct {
	baseURI               string
	capacity              int
	flushInterval         time.Duration
	userKeysCapacity      int
	userKeysFlushInterval time.Duration
	allAttributesPrivate  bool
	inlineUsersInEvents   bool
	privateAttributeNames []string
}

// SendEvents returns a configurable factory that enables analytics event delivery.
func SendEvents() *EventProcessorBuilder {
	return &EventProcessorBuilder{
		baseURI:               DefaultEventsBaseURI,
		capacity:              DefaultEventsCapacity,
		flushInterval:         ldevents.DefaultFlushInterval,
		userKeysCapacity:      1000,
		userKeysFlushInterval: ldevents.DefaultUserKeysFlushInterval,
	}
}

// BaseURI sets a custom events service base URI, e.g. for a Relay Proxy instance.
func (b *EventProcessorBuilder) BaseURI(uri string) *EventProcessorBuilder {
	if uri != "" {
		b.baseURI = uri
	}
	return b
}

// Capacity sets the maximum number of events buffered between flushes. If this limit is exceeded,
// events are dropped and a warning is logged (spec §4.9).
func (b *EventProcessorBuilder) Capacity(capacity int) *EventProcessorBuilder {
	if capacity > 0 {
		b.capacity = capacity
	}
	return b
}

// FlushInterval sets how often buffered events are sent.
func (b *EventProcessorBuilder) FlushInterval(interval time.Duration) *EventProcessorBuilder {
	if interval > 0 {
		b.flushInterval = interval
	}
	return b
}

// AllAttributesPrivate, if true, omits all user attribute values from outgoing events regardless of
// PrivateAttributeNames or any per-user private attribute (spec §4.9/§6).
func (b *EventProcessorBuilder) AllAttributesPrivate(value bool) *EventProcessorBuilder {
	b.allAttributesPrivate = value
	return b
}

// PrivateAttributeNames adds attribute names that should be redacted from every outgoing event,
// in addition to whatever a given user marks private itself.
func (b *EventProcessorBuilder) PrivateAttributeNames(names ...string) *EventProcessorBuilder {
	b.privateAttributeNames = names
	return b
}

// InlineUsersInEvents, if true, embeds the full (scrubbed) user in every feature/custom event
// instead of just the user key plus a separate index event (spec §4.9/§6).
func (b *EventProcessorBuilder) InlineUsersInEvents(value bool) *EventProcessorBuilder {
	b.inlineUsersInEvents = value
	return b
}

// CreateEventProcessor builds the default event processor, backed by an HTTP event sender. Called
// internally by Config wiring.
func (b *EventProcessorBuilder) CreateEventProcessor(
	context subsystems.ClientContext,
) (ldevents.EventProcessor, error) {
	return ldevents.NewDefaultEventProcessor(ldevents.EventsConfiguration{
		AllAttributesPrivate:  b.allAttributesPrivate,
		Capacity:              b.capacity,
		EventsURI:             b.baseURI + "/bulk",
		DiagnosticURI:         b.baseURI + "/diagnostic",
		FlushInterval:         b.flushInterval,
		Headers:               context.GetHTTPHeaders(),
		HTTPClient:            context.GetHTTPClient(),
		InlineUsersInEvents:   b.inlineUsersInEvents,
		Loggers:               context.GetLoggers(),
		PrivateAttributeNames: b.privateAttributeNames,
		UserKeysCapacity:      b.userKeysCapacity,
		UserKeysFlushInterval: b.userKeysFlushInterval,
	}), nil
}

type noEventProcessorFactory struct{}

// NoEvents returns a factory that disables analytics event delivery entirely.
func NoEvents() subsystems.EventProcessorFactory {
	return noEventProcessorFactory{}
}

func (noEventProcessorFactory) CreateEventProcessor(subsystems.ClientContext) (ldevents.EventProcessor, error) {
	return ldevents.NewNullEventProcessor(), nil
}
