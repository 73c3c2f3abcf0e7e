// Package ldstoretypes defines the generic shapes the data store, dependency sorter, and data
// source pipeline share (spec §4.5/§4.6): a data kind, a versioned item within it, and the
// collections used to initialize or describe the store's contents.
package ldstoretypes

// DataKind identifies one of the store's top-level collections (flags, segments). It is kept as a
// small interface, not a string constant, so the dependency sorter can ask a kind for its
// dependency-priority name without internal/datastore needing to import internal/datakinds.
type DataKind interface {
	// GetName returns the kind's namespace, e.g. "features" or "segments".
	GetName() string
}

// ItemDescriptor wraps a stored item with its version. Item is nil for a tombstone: the version is
// retained so a lower-version upsert cannot revive the deleted entry (spec §3, §4.5).
type ItemDescriptor struct {
	Version int
	Item    interface{}
}

// NotFound returns the zero-value descriptor used to represent "no such item."
func (d ItemDescriptor) NotFound() ItemDescriptor {
	return ItemDescriptor{Version: 0, Item: nil}
}

// IsDeleted returns true if this descriptor represents a tombstone rather than a live item.
func (d ItemDescriptor) IsDeleted() bool {
	return d.Item == nil
}

// KeyedItemDescriptor pairs an ItemDescriptor with the key it is stored under.
type KeyedItemDescriptor struct {
	Key  string
	Item ItemDescriptor
}

// Collection is one kind's full set of items, as passed to Init.
type Collection struct {
	Kind  DataKind
	Items []KeyedItemDescriptor
}
