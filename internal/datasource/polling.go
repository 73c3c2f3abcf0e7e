package datasource

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
)

// PollingProcessor fetches the full data set on a fixed interval (spec §4.8), grounded on the
// teacher's polling.go loop shape but generalized to the requestor's bulk fetch and the new
// Ready/DataStoreWriter types.
type PollingProcessor struct {
	requestor *FeatureRequestor
	store     DataStoreWriter
	interval  time.Duration
	loggers   ldlog.Loggers
	quit      chan struct{}
	ready     *Ready
}

// NewPollingProcessor constructs a PollingProcessor. interval is clamped to a sane minimum by the
// caller's config layer, not here.
func NewPollingProcessor(
	requestor *FeatureRequestor,
	store DataStoreWriter,
	interval time.Duration,
	loggers ldlog.Loggers,
) *PollingProcessor {
	return &PollingProcessor{
		requestor: requestor,
		store:     store,
		interval:  interval,
		loggers:   loggers,
		quit:      make(chan struct{}),
		ready:     NewReady(),
	}
}

// Start launches the polling loop in the background and returns immediately; use Ready() to learn
// when the first successful fetch has landed.
func (pp *PollingProcessor) Start() {
	go pp.run()
}

// Ready returns the future that completes on the first successful poll, or permanently fails on an
// unrecoverable HTTP error (spec §4.8, §7).
func (pp *PollingProcessor) Ready() *Ready {
	return pp.ready
}

func (pp *PollingProcessor) run() {
	for {
		select {
		case <-pp.quit:
			return
		default:
			start := time.Now()
			if err := pp.poll(); err != nil {
				if statusErr, ok := err.(httpStatusError); ok && !isHTTPErrorRecoverable(statusErr.Code) {
					pp.loggers.Errorf("polling processor stopping permanently: %s", err)
					pp.ready.Signal(err)
					return
				}
				pp.loggers.Warnf("polling request failed, will retry: %s", err)
			}
			if delta := pp.interval - time.Since(start); delta > 0 {
				time.Sleep(delta)
			}
		}
	}
}

func (pp *PollingProcessor) poll() error {
	collections, fetched, err := pp.requestor.GetAll(false)
	if err != nil {
		return err
	}
	if !fetched {
		// 304 Not Modified: nothing changed since the last poll.
		return nil
	}
	if err := pp.store.Init(collections); err != nil {
		return err
	}
	pp.ready.Signal(nil)
	return nil
}

// Close stops the polling loop.
func (pp *PollingProcessor) Close() error {
	close(pp.quit)
	return nil
}
