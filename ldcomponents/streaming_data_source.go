package ldcomponents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-flagcore/subsystems"
)

// DefaultStreamingBaseURI is the default value for StreamingDataSourceBuilder.BaseURI.
const DefaultStreamingBaseURI = "https://stream.launchdarkly.com"

// DefaultInitialReconnectDelay is the default value for StreamingDataSourceBuilder.InitialReconnectDelay.
const DefaultInitialReconnectDelay = time.Second

// requestorTimeout is the HTTP timeout of the feature requestor that both the streaming and the
// polling builders create; it has no builder option.
const requestorTimeout = 10 * time.Second

// StreamingDataSourceBuilder configures the streaming data source (spec §4.7).
type StreamingDataSourceBuilder struct {
	streamBaseURI         string
	pollBaseURI           string
	initialReconnectDelay time.Duration
}

// StreamingDataSource returns a configurable factory for the streaming data source. This is the
// default if Config.DataSource is left unset in most LaunchDarkly-style SDKs, but this SDK requires
// it to be set explicitly since it exposes no full client facade (spec §4.12).
func StreamingDataSource() *StreamingDataSourceBuilder {
	return &StreamingDataSourceBuilder{
		streamBaseURI:         DefaultStreamingBaseURI,
		pollBaseURI:           DefaultPollingBaseURI,
		initialReconnectDelay: DefaultInitialReconnectDelay,
	}
}

// BaseURI sets a custom streaming service base URI, e.g. for a Relay Proxy instance.
func (b *StreamingDataSourceBuilder) BaseURI(uri string) *StreamingDataSourceBuilder {
	if uri != "" {
		b.streamBaseURI = uri
	}
	return b
}

// InitialReconnectDelay sets the initial delay before the first reconnect attempt after a stream
// failure; it backs off exponentially (capped) on repeated failures (spec §4.7/§9).
func (b *StreamingDataSourceBuilder) InitialReconnectDelay(delay time.Duration) *StreamingDataSourceBuilder {
	if delay > 0 {
		b.initialReconnectDelay = delay
	}
	return b
}

// CreateDataSource builds the StreamingProcessor. Called internally by Config wiring.
func (b *StreamingDataSourceBuilder) CreateDataSource(
	context subsystems.ClientContext,
	store datasource.DataStoreWriter,
) (subsystems.DataSource, error) {
	requestor := datasource.NewFeatureRequestor(context.GetSDKKey(), b.pollBaseURI, userAgent, requestorTimeout)
	return datasource.NewStreamingProcessor(
		b.streamBaseURI,
		context.GetSDKKey(),
		userAgent,
		store,
		requestor,
		b.initialReconnectDelay,
		context.GetLoggers(),
	), nil
}
