// Package subsystems defines the component-factory interfaces that let a caller assemble the
// data-source and event-processor pipelines (spec §4.7-§4.10) from a Config, without the wiring
// layer (ldcomponents) or the pipelines themselves (internal/datasource, ldevents) depending on
// each other directly. This mirrors the teacher's separately-versioned interfaces package, folded
// into one file since this SDK's wiring surface is intentionally thin (spec §4.12).
package subsystems

import (
	"net/http"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldevents"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
)

// ClientContext provides ambient configuration to component factories when they build the data
// source and event processor: the SDK key, the shared HTTP client and headers, and the loggers.
type ClientContext interface {
	GetSDKKey() string
	GetHTTPClient() *http.Client
	GetHTTPHeaders() http.Header
	GetLoggers() ldlog.Loggers
}

// DataSource describes the lifecycle of a running update processor (streaming or polling): start
// it, learn when its first successful fetch has landed (or it gave up permanently), and close it.
type DataSource interface {
	Start()
	Ready() *datasource.Ready
	Close() error
}

// DataSourceFactory builds a DataSource bound to a particular data store writer. The factory
// implementations live in ldcomponents (StreamingDataSource, PollingDataSource).
type DataSourceFactory interface {
	CreateDataSource(context ClientContext, store datasource.DataStoreWriter) (DataSource, error)
}

// EventProcessorFactory builds an ldevents.EventProcessor. The factory implementations live in
// ldcomponents (SendEvents, NoEvents).
type EventProcessorFactory interface {
	CreateEventProcessor(context ClientContext) (ldevents.EventProcessor, error)
}
