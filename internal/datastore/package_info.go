// Package datastore is an internal package containing the SDK's in-memory data store implementation.
// These types are not visible from outside of the SDK.
//
// No persistent or database-backed data store is implemented in this module.
package datastore
