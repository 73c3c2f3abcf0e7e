package datasource

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datakinds"
	"github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldmodel"
)

const (
	putEvent    = "put"
	patchEvent  = "patch"
	deleteEvent = "delete"

	maxReconnectDelay = time.Minute
)

type putData struct {
	Data allData `json:"data"`
}

type patchData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// StreamingProcessor maintains a single long-lived SSE connection and dispatches put/patch/delete
// events into the data store (spec §4.7). Grounded on the teacher's streaming.go, generalized from
// a single-namespace feature store to the flags+segments model and given exponential-backoff
// reconnect per spec §4.7/§9.
type StreamingProcessor struct {
	streamURI         string
	sdkKey            string
	userAgent         string
	store             DataStoreWriter
	requestor         *FeatureRequestor
	initialReconnect  time.Duration
	loggers           ldlog.Loggers

	mu     sync.Mutex
	stream *es.Stream
	quit   chan struct{}
	ready  *Ready
}

// NewStreamingProcessor constructs a StreamingProcessor. requestor is stored on the processor but
// never called: all data comes from the put/patch/delete events themselves.
func NewStreamingProcessor(
	streamURI, sdkKey, userAgent string,
	store DataStoreWriter,
	requestor *FeatureRequestor,
	initialReconnectDelay time.Duration,
	loggers ldlog.Loggers,
) *StreamingProcessor {
	return &StreamingProcessor{
		streamURI:        streamURI,
		sdkKey:           sdkKey,
		userAgent:        userAgent,
		store:            store,
		requestor:        requestor,
		initialReconnect: initialReconnectDelay,
		loggers:          loggers,
		quit:             make(chan struct{}),
		ready:            NewReady(),
	}
}

// Ready returns the future that completes on the first successful put, or permanently fails if the
// stream subscription is rejected with a non-recoverable HTTP error (spec §4.7, §7).
func (sp *StreamingProcessor) Ready() *Ready {
	return sp.ready
}

// Start launches the stream consumer loop in the background and returns immediately.
func (sp *StreamingProcessor) Start() {
	go sp.run()
}

func (sp *StreamingProcessor) run() {
	delay := sp.initialReconnect
	for {
		select {
		case <-sp.quit:
			return
		default:
		}

		stream, err := sp.subscribe()
		if err != nil {
			if subErr, ok := err.(es.SubscriptionError); ok && !isHTTPErrorRecoverable(subErr.Code) {
				sp.loggers.Errorf("streaming processor stopping permanently: %s", err)
				sp.ready.Signal(err)
				return
			}
			sp.loggers.Warnf("unable to connect to stream, will retry: %s", err)
			sp.sleepWithJitter(delay)
			delay = nextDelay(delay)
			continue
		}
		delay = sp.initialReconnect

		sp.consume(stream)

		select {
		case <-sp.quit:
			return
		default:
			sp.sleepWithJitter(delay)
			delay = nextDelay(delay)
		}
	}
}

func (sp *StreamingProcessor) subscribe() (*es.Stream, error) {
	headers := make(http.Header)
	headers.Add("Authorization", sp.sdkKey)
	headers.Add("User-Agent", sp.userAgent)

	stream, err := es.Subscribe(sp.streamURI+"/all", headers, "")
	if err != nil {
		return nil, err
	}
	sp.mu.Lock()
	sp.stream = stream
	sp.mu.Unlock()
	return stream, nil
}

// consume reads events from one stream connection until it errs out or the quit signal fires.
func (sp *StreamingProcessor) consume(stream *es.Stream) {
	for {
		select {
		case <-sp.quit:
			return
		case event, ok := <-stream.Events:
			if !ok {
				return
			}
			sp.handleEvent(event)
		case err, ok := <-stream.Errors:
			if !ok {
				return
			}
			if err != nil && err != io.EOF {
				sp.loggers.Warnf("error reading from stream, reconnecting: %s", err)
			}
			return
		}
	}
}

func (sp *StreamingProcessor) handleEvent(event es.Event) {
	switch event.Event() {
	case putEvent:
		var put putData
		if err := json.Unmarshal([]byte(event.Data()), &put); err != nil {
			sp.loggers.Errorf("unexpected error unmarshalling put event: %s", err)
			return
		}
		if err := sp.store.Init(toCollections(put.Data)); err != nil {
			sp.loggers.Errorf("error initializing store from put event: %s", err)
			return
		}
		sp.ready.Signal(nil)
	case patchEvent:
		var patch patchData
		if err := json.Unmarshal([]byte(event.Data()), &patch); err != nil {
			sp.loggers.Errorf("unexpected error unmarshalling patch event: %s", err)
			return
		}
		sp.applyPatch(patch)
	case deleteEvent:
		var del deleteData
		if err := json.Unmarshal([]byte(event.Data()), &del); err != nil {
			sp.loggers.Errorf("unexpected error unmarshalling delete event: %s", err)
			return
		}
		sp.applyDelete(del)
	default:
		sp.loggers.Warnf("unexpected event type in stream: %s", event.Event())
	}
}

func (sp *StreamingProcessor) applyPatch(patch patchData) {
	switch {
	case strings.HasPrefix(patch.Path, "/flags/"):
		key := strings.TrimPrefix(patch.Path, "/flags/")
		var flag ldmodel.FeatureFlag
		if err := json.Unmarshal(patch.Data, &flag); err != nil {
			sp.loggers.Errorf("unexpected error unmarshalling patched flag: %s", err)
			return
		}
		ldmodel.PreprocessFlag(&flag)
		_, _ = sp.store.Upsert(datakinds.Features, key, ldstoretypes.ItemDescriptor{Version: flag.Version, Item: &flag})
	case strings.HasPrefix(patch.Path, "/segments/"):
		key := strings.TrimPrefix(patch.Path, "/segments/")
		var segment ldmodel.Segment
		if err := json.Unmarshal(patch.Data, &segment); err != nil {
			sp.loggers.Errorf("unexpected error unmarshalling patched segment: %s", err)
			return
		}
		ldmodel.PreprocessSegment(&segment)
		_, _ = sp.store.Upsert(datakinds.Segments, key, ldstoretypes.ItemDescriptor{Version: segment.Version, Item: &segment})
	default:
		sp.loggers.Warnf("unrecognized patch path: %s", patch.Path)
	}
}

func (sp *StreamingProcessor) applyDelete(del deleteData) {
	switch {
	case strings.HasPrefix(del.Path, "/flags/"):
		key := strings.TrimPrefix(del.Path, "/flags/")
		_, _ = sp.store.Upsert(datakinds.Features, key, ldstoretypes.ItemDescriptor{Version: del.Version, Item: nil})
	case strings.HasPrefix(del.Path, "/segments/"):
		key := strings.TrimPrefix(del.Path, "/segments/")
		_, _ = sp.store.Upsert(datakinds.Segments, key, ldstoretypes.ItemDescriptor{Version: del.Version, Item: nil})
	default:
		sp.loggers.Warnf("unrecognized delete path: %s", del.Path)
	}
}

func (sp *StreamingProcessor) sleepWithJitter(d time.Duration) {
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	time.Sleep(d/2 + jitter)
}

func nextDelay(d time.Duration) time.Duration {
	doubled := d * 2
	if doubled > maxReconnectDelay {
		return maxReconnectDelay
	}
	return doubled
}

// Close stops the stream consumer loop and closes the current connection, if any.
func (sp *StreamingProcessor) Close() error {
	close(sp.quit)
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.stream != nil {
		sp.stream.Close()
	}
	return nil
}
