package flagcore

import (
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldevents"
	"github.com/launchdarkly/go-server-sdk-flagcore/subsystems"
)

var errNoDataSourceConfigured = errors.New("flagcore: Config.DataSource is nil; set it to an ldcomponents data source builder")

// Pipeline bundles a running data source and event processor, built from a Config (spec §4.12). It
// is the smallest unit a caller needs to keep a data store synchronized and deliver analytics
// events; the flag-evaluation facade on top of it is out of scope per spec §1.
type Pipeline struct {
	DataSource     subsystems.DataSource
	EventProcessor ldevents.EventProcessor
}

// NewPipeline builds and starts the data source and event processor described by config, writing
// flag/segment updates into store. The data source is started but not waited on; call
// Pipeline.DataSource.Ready() to learn when the first fetch has landed.
func NewPipeline(sdkKey string, config Config, store datasource.DataStoreWriter) (*Pipeline, error) {
	context := NewClientContext(sdkKey, config)

	eventsFactory := config.Events
	if eventsFactory == nil {
		eventsFactory = noEventsFactory{}
	}
	eventProcessor, err := eventsFactory.CreateEventProcessor(context)
	if err != nil {
		return nil, err
	}

	dataSourceFactory := config.DataSource
	if dataSourceFactory == nil {
		dataSourceFactory = defaultDataSourceFactory{}
	}
	dataSource, err := dataSourceFactory.CreateDataSource(context, store)
	if err != nil {
		_ = eventProcessor.Close()
		return nil, err
	}

	dataSource.Start()
	return &Pipeline{DataSource: dataSource, EventProcessor: eventProcessor}, nil
}

// Close shuts down the data source and the event processor concurrently, since neither's shutdown
// depends on the other finishing first - the event processor's final Flush should not be delayed
// behind the data source's connection teardown, or vice versa. It returns the first error, if any.
func (p *Pipeline) Close() error {
	var g errgroup.Group
	g.Go(p.DataSource.Close)
	g.Go(p.EventProcessor.Close)
	return g.Wait()
}

// noEventsFactory and defaultDataSourceFactory exist so a zero-value Config.Events/DataSource
// produces a disabled event processor and an error respectively, instead of a nil-pointer panic;
// ldcomponents.NoEvents() and ldcomponents.StreamingDataSource() are the normal way to set these.
type noEventsFactory struct{}

func (noEventsFactory) CreateEventProcessor(subsystems.ClientContext) (ldevents.EventProcessor, error) {
	return ldevents.NewNullEventProcessor(), nil
}

type defaultDataSourceFactory struct{}

func (defaultDataSourceFactory) CreateDataSource(
	subsystems.ClientContext,
	datasource.DataStoreWriter,
) (subsystems.DataSource, error) {
	return nil, errNoDataSourceConfigured
}
