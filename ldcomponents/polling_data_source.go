package ldcomponents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-flagcore/subsystems"
)

// DefaultPollingBaseURI is the default value for PollingDataSourceBuilder.BaseURI.
const DefaultPollingBaseURI = "https://sdk.launchdarkly.com"

// DefaultPollInterval is the default value for PollingDataSourceBuilder.PollInterval, and also the
// floor a caller-supplied interval is clamped to - polling more often than this risks the service
// rate-limiting the SDK key.
const DefaultPollInterval = 30 * time.Second

// PollingDataSourceBuilder configures the polling data source (spec §4.8).
type PollingDataSourceBuilder struct {
	baseURI      string
	pollInterval time.Duration
}

// PollingDataSource returns a configurable factory for using polling mode instead of streaming.
// Applications should generally prefer StreamingDataSource; polling exists for environments where a
// long-lived streaming connection isn't practical.
func PollingDataSource() *PollingDataSourceBuilder {
	return &PollingDataSourceBuilder{
		baseURI:      DefaultPollingBaseURI,
		pollInterval: DefaultPollInterval,
	}
}

// BaseURI sets a custom polling service base URI, e.g. for a Relay Proxy instance.
func (b *PollingDataSourceBuilder) BaseURI(uri string) *PollingDataSourceBuilder {
	if uri != "" {
		b.baseURI = uri
	}
	return b
}

// PollInterval sets how often the SDK polls for updates. Values below DefaultPollInterval are
// clamped to it.
func (b *PollingDataSourceBuilder) PollInterval(interval time.Duration) *PollingDataSourceBuilder {
	if interval < DefaultPollInterval {
		interval = DefaultPollInterval
	}
	b.pollInterval = interval
	return b
}

// CreateDataSource builds the PollingProcessor. Called internally by Config wiring.
func (b *PollingDataSourceBuilder) CreateDataSource(
	context subsystems.ClientContext,
	store datasource.DataStoreWriter,
) (subsystems.DataSource, error) {
	requestor := datasource.NewFeatureRequestor(context.GetSDKKey(), b.baseURI, userAgent, requestorTimeout)
	return datasource.NewPollingProcessor(requestor, store, b.pollInterval, context.GetLoggers()), nil
}
