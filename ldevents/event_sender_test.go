package ldevents

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
)

func TestDefaultEventSenderPostsToEventsURIForAnalyticsData(t *testing.T) {
	client, requests := newHTTPClientWithRequestSink(202)
	sender := NewDefaultEventSender(EventsConfiguration{
		HTTPClient: client,
		EventsURI:  "http://events.example/bulk",
		Loggers:    ldlog.Loggers{},
	})

	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[{"kind":"identify"}]`), 1)

	assert.True(t, result.Success)
	if assert.Len(t, *requests, 1) {
		req := (*requests)[0]
		assert.Equal(t, "http://events.example/bulk", req.URL.String())
		assert.Equal(t, currentEventSchema, req.Header.Get(eventSchemaHeader))
		assert.NotEmpty(t, req.Header.Get(payloadIDHeader))
		assert.Equal(t, []byte(`[{"kind":"identify"}]`), getBody(req))
	}
}

func TestDefaultEventSenderPostsToDiagnosticURIForDiagnosticData(t *testing.T) {
	client, requests := newHTTPClientWithRequestSink(202)
	sender := NewDefaultEventSender(EventsConfiguration{
		HTTPClient:    client,
		EventsURI:     "http://events.example/bulk",
		DiagnosticURI: "http://events.example/diagnostic",
		Loggers:       ldlog.Loggers{},
	})

	result := sender.SendEventData(DiagnosticEventDataKind, []byte(`{"kind":"diagnostic-init"}`), 1)

	assert.True(t, result.Success)
	if assert.Len(t, *requests, 1) {
		assert.Equal(t, "http://events.example/diagnostic", (*requests)[0].URL.String())
	}
}

func TestDefaultEventSenderReportsUnrecoverableErrorOnUnauthorized(t *testing.T) {
	client, _ := newHTTPClientWithRequestSink(http.StatusUnauthorized)
	sender := NewDefaultEventSender(EventsConfiguration{
		HTTPClient: client,
		EventsURI:  "http://events.example/bulk",
		Loggers:    ldlog.Loggers{},
	})

	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.False(t, result.Success)
	assert.True(t, result.MustShutDown)
}

func TestDefaultEventSenderRetriesOnRecoverableError(t *testing.T) {
	attempts := 0
	client := newHTTPClientWithHandler(func(req *http.Request) (*http.Response, error) {
		attempts++
		status := http.StatusBadRequest
		if attempts > 1 {
			status = 202
		}
		return newHTTPResponse(req, status, nil, nil), nil
	})
	sender := NewDefaultEventSender(EventsConfiguration{
		HTTPClient: client,
		EventsURI:  "http://events.example/bulk",
		Loggers:    ldlog.Loggers{},
	})

	result := sender.SendEventData(AnalyticsEventDataKind, []byte(`[]`), 0)

	assert.True(t, result.Success)
	assert.Equal(t, 2, attempts)
}
