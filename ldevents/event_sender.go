package ldevents

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
)

const (
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
)

// defaultEventSender is the production EventSender implementation, posting already-formatted
// event payloads to the events service over HTTP with a single retry on transient failure.
type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       ldlog.Loggers
}

// NewDefaultEventSender creates the HTTP-backed EventSender used when EventsConfiguration.EventSender
// is not overridden.
func NewDefaultEventSender(config EventsConfiguration) EventSender {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     config.EventsURI,
		diagnosticURI: config.DiagnosticURI,
		headers:       config.Headers,
		loggers:       config.Loggers,
	}
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	uri := s.eventsURI
	if kind == DiagnosticEventDataKind {
		uri = s.diagnosticURI
	}

	resp := s.postEvents(uri, data)
	if resp == nil {
		return EventSenderResult{Success: false}
	}
	defer func() {
		if resp.Body != nil {
			_, _ = ioutil.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}
	}()

	if err := checkForHttpError(resp.StatusCode, uri); err != nil {
		s.loggers.Error(httpErrorMessage(resp.StatusCode, "posting events", "some events were dropped"))
		return EventSenderResult{Success: false, MustShutDown: !isHTTPErrorRecoverable(resp.StatusCode)}
	}

	result := EventSenderResult{Success: true}
	if dt, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		result.TimeFromServer = toUnixMillis(dt)
	}
	return result
}

func (s *defaultEventSender) postEvents(uri string, jsonPayload []byte) *http.Response {
	payloadUUID, _ := uuid.NewRandom()
	payloadID := payloadUUID.String() // if NewRandom somehow failed, we'll just proceed with the all-zero UUID

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.loggers.Warn("Will retry posting events after 1 second")
			time.Sleep(1 * time.Second)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(jsonPayload))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return nil
		}

		for k, vv := range s.headers {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add(eventSchemaHeader, currentEventSchema)
		req.Header.Add(payloadIDHeader, payloadID)

		if resp != nil && resp.Body != nil {
			_, _ = ioutil.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}

		resp, respErr = s.httpClient.Do(req)

		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		} else if resp.StatusCode >= 400 && isHTTPErrorRecoverable(resp.StatusCode) {
			s.loggers.Warnf("Received error status %d when sending events", resp.StatusCode)
			continue
		} else {
			break
		}
	}
	return resp
}
