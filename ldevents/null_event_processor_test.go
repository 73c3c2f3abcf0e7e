package ldevents

import (
	"testing"
)

func TestNullEventProcessorDoesNothing(t *testing.T) {
	ep := NewNullEventProcessor()
	ep.SendEvent(defaultEventFactory.NewIdentifyEvent(epDefaultUser))
	ep.Flush()
	if err := ep.Close(); err != nil {
		t.Errorf("expected Close to succeed, got %v", err)
	}
}
