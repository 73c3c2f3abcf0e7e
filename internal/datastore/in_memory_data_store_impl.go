package datastore

import (
	"sync"
	"sync/atomic"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldlog"
)

// allData is the immutable snapshot readers see. A writer never mutates one of these in place; it
// builds a new allData (copying every kind's inner map, then changing the copy) and swaps the
// store's atomic pointer to it, per spec §4.5/§9's "copy-on-write of the outer kind-map plus inner
// key-map" reference design. This makes Get/All wait-free: they just load the pointer.
type allData map[ldstoretypes.DataKind]map[string]ldstoretypes.ItemDescriptor

func (d allData) clone() allData {
	out := make(allData, len(d))
	for kind, items := range d {
		innerCopy := make(map[string]ldstoretypes.ItemDescriptor, len(items))
		for k, v := range items {
			innerCopy[k] = v
		}
		out[kind] = innerCopy
	}
	return out
}

// InMemoryDataStore is a memory based DataStore implementation, backed by a copy-on-write snapshot.
//
// Implementation notes:
//
// Writes (Init/Upsert) serialize on writeMu so two concurrent writers never race constructing the
// next snapshot. Reads never take that mutex at all - they load the current *allData pointer
// atomically, which is why a reader that observes one flag's upsert is guaranteed to observe any
// write sequenced before it (the new snapshot that reader loaded already contains it).
type InMemoryDataStore struct {
	snapshot      atomic.Value // holds allData
	isInitialized atomic.Bool
	writeMu       sync.Mutex
	loggers       ldlog.Loggers
}

// NewInMemoryDataStore creates an instance of the in-memory data store.
func NewInMemoryDataStore(loggers ldlog.Loggers) *InMemoryDataStore {
	store := &InMemoryDataStore{loggers: loggers}
	store.snapshot.Store(allData{})
	return store
}

func (store *InMemoryDataStore) current() allData {
	return store.snapshot.Load().(allData)
}

// Init atomically replaces the entire contents of the store (spec §4.5 init).
func (store *InMemoryDataStore) Init(collections []ldstoretypes.Collection) error {
	store.writeMu.Lock()
	defer store.writeMu.Unlock()

	next := make(allData, len(collections))
	for _, coll := range collections {
		items := make(map[string]ldstoretypes.ItemDescriptor, len(coll.Items))
		for _, item := range coll.Items {
			items[item.Key] = item.Item
		}
		next[coll.Kind] = items
	}

	store.snapshot.Store(next)
	store.isInitialized.Store(true)
	return nil
}

// Get returns the item for (kind, key), or ItemDescriptor{}.NotFound() if absent. A tombstone is
// returned as stored (Item nil, its Version kept), so Item is nil and IsDeleted is true for both a
// missing item and a tombstone; only the Version (0 for a missing item) tells them apart.
func (store *InMemoryDataStore) Get(kind ldstoretypes.DataKind, key string) (ldstoretypes.ItemDescriptor, error) {
	snap := store.current()
	if coll, ok := snap[kind]; ok {
		if item, ok := coll[key]; ok {
			return item, nil
		}
	}
	if store.loggers.IsDebugEnabled() {
		store.loggers.Debugf(`Key %s not found in "%s"`, key, kind.GetName())
	}
	return ldstoretypes.ItemDescriptor{}.NotFound(), nil
}

// All returns every non-tombstoned item of the given kind (spec §4.5 all).
func (store *InMemoryDataStore) All(kind ldstoretypes.DataKind) ([]ldstoretypes.KeyedItemDescriptor, error) {
	snap := store.current()
	coll, ok := snap[kind]
	if !ok || len(coll) == 0 {
		return nil, nil
	}
	out := make([]ldstoretypes.KeyedItemDescriptor, 0, len(coll))
	for key, item := range coll {
		if item.Item == nil {
			continue
		}
		out = append(out, ldstoretypes.KeyedItemDescriptor{Key: key, Item: item})
	}
	return out, nil
}

// Upsert stores newItem under (kind, key) if there is no current entry or the current entry's
// version is lower; otherwise it is a no-op (spec §4.5 upsert). A tombstone (newItem.Item == nil)
// is stored the same way a live item is, so a lower-version upsert can never resurrect it.
func (store *InMemoryDataStore) Upsert(
	kind ldstoretypes.DataKind,
	key string,
	newItem ldstoretypes.ItemDescriptor,
) (bool, error) {
	store.writeMu.Lock()
	defer store.writeMu.Unlock()

	cur := store.current()
	if existingColl, ok := cur[kind]; ok {
		if existing, ok := existingColl[key]; ok && existing.Version >= newItem.Version {
			return false, nil
		}
	}

	next := cur.clone()
	if next[kind] == nil {
		next[kind] = make(map[string]ldstoretypes.ItemDescriptor, 1)
	}
	next[kind][key] = newItem
	store.snapshot.Store(next)
	return true, nil
}

// Delete is equivalent to upserting a tombstone at the given version (spec §4.5 delete).
func (store *InMemoryDataStore) Delete(kind ldstoretypes.DataKind, key string, version int) (bool, error) {
	return store.Upsert(kind, key, ldstoretypes.ItemDescriptor{Version: version, Item: nil})
}

// IsInitialized reports whether Init has ever been called.
func (store *InMemoryDataStore) IsInitialized() bool {
	return store.isInitialized.Load()
}

// IsStatusMonitoringEnabled is always false for an in-memory store; there is no outage to monitor.
func (store *InMemoryDataStore) IsStatusMonitoringEnabled() bool {
	return false
}

// Close is a no-op for an in-memory store.
func (store *InMemoryDataStore) Close() error {
	return nil
}
