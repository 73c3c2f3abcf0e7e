// Package flagcore ties the data-source pipeline (internal/datasource), the event pipeline
// (ldevents), and their component builders (ldcomponents) together behind a Config a caller can
// construct and start against a real or test HTTP endpoint (spec §4.12). It deliberately stops
// short of a full client facade (Identify, *VariationDetail accessors); that surface is out of
// scope per spec §1.
package flagcore

import (
	"net/http"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
	"github.com/launchdarkly/go-server-sdk-flagcore/subsystems"
)

// Config assembles the factories used to build the data source and event processor.
//
// A zero-value Config has no data source and no event delivery; set DataSource and Events to one
// of the ldcomponents builders, e.g.:
//
//	config := flagcore.Config{
//	    DataSource: ldcomponents.StreamingDataSource(),
//	    Events:     ldcomponents.SendEvents(),
//	}
type Config struct {
	// DataSource builds the update processor that keeps a data store synchronized (spec §4.7/§4.8).
	DataSource subsystems.DataSourceFactory
	// Events builds the analytics event processor (spec §4.9), or ldcomponents.NoEvents() to
	// disable event delivery entirely.
	Events subsystems.EventProcessorFactory
	// Loggers receives diagnostic output from every component built from this Config.
	Loggers ldlog.Loggers
	// HTTPClient is used by the event sender. If nil, http.DefaultClient is used. The data sources
	// do not use it; they build their own HTTP clients.
	HTTPClient *http.Client
	// HTTPHeaders are added to every event-sender request, in addition to Authorization/User-Agent.
	// Data source requests do not carry them.
	HTTPHeaders http.Header
}

type clientContext struct {
	sdkKey     string
	httpClient *http.Client
	headers    http.Header
	loggers    ldlog.Loggers
}

// NewClientContext builds the subsystems.ClientContext that component factories receive, applying
// Config's defaults (http.DefaultClient when HTTPClient is unset).
func NewClientContext(sdkKey string, config Config) subsystems.ClientContext {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	headers := make(http.Header, len(config.HTTPHeaders)+2)
	for k, v := range config.HTTPHeaders {
		headers[k] = v
	}
	headers.Set("Authorization", sdkKey)
	headers.Set("User-Agent", "FlagCoreGoSDK")
	return &clientContext{
		sdkKey:     sdkKey,
		httpClient: httpClient,
		headers:    headers,
		loggers:    config.Loggers,
	}
}

func (c *clientContext) GetSDKKey() string          { return c.sdkKey }
func (c *clientContext) GetHTTPClient() *http.Client { return c.httpClient }
func (c *clientContext) GetHTTPHeaders() http.Header { return c.headers }
func (c *clientContext) GetLoggers() ldlog.Loggers   { return c.loggers }
