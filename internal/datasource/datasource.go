// Package datasource implements the two interchangeable update processors (spec §4.7/§4.8) that
// keep a data store synchronized with the remote control plane: a streaming SSE consumer and a
// periodic polling consumer, both backed by the feature requestor (spec §4.10).
package datasource

import (
	"sync"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
)

// DataStoreWriter is the subset of internal/datastore.InMemoryDataStore the update processors
// need. Declared locally so this package does not import internal/datastore's concrete type,
// matching the dependency-direction convention used between ldmodel and lduser.
type DataStoreWriter interface {
	Init(collections []ldstoretypes.Collection) error
	Upsert(kind ldstoretypes.DataKind, key string, item ldstoretypes.ItemDescriptor) (bool, error)
}

// Ready is the "initialized future" spec §4.7/§4.8 describe: a one-shot signal that completes
// either successfully (the store received its first full data set) or with a permanent error (the
// data source gave up for good, e.g. an invalid SDK key). Close is idempotent.
type Ready struct {
	once sync.Once
	ch   chan struct{}
	err  error
}

// NewReady returns a Ready that has not yet fired.
func NewReady() *Ready {
	return &Ready{ch: make(chan struct{})}
}

// Signal completes the future, if it has not already completed. A nil err means success.
func (r *Ready) Signal(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.ch)
	})
}

// Done returns a channel that is closed once Signal has been called.
func (r *Ready) Done() <-chan struct{} {
	return r.ch
}

// Err returns the error Signal completed with, or nil on success. Only meaningful after Done() is
// closed.
func (r *Ready) Err() error {
	return r.err
}
