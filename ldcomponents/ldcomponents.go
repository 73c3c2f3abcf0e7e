// Package ldcomponents provides builder functions for the data-source and event-processor
// factories used by a Config (spec §4.12): StreamingDataSource, PollingDataSource, SendEvents, and
// NoEvents. Grounded on the teacher's ldcomponents package, trimmed to the options this SDK's
// Config actually exposes.
package ldcomponents

const userAgent = "FlagCoreGoSDK"
