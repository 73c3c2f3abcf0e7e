// Package ldmodel defines the flag and segment data types the evaluator operates on: FeatureFlag,
// Segment, their rules and clauses, the operator set, and the bucketing algorithm. It has no
// dependency on the data store or the evaluator itself, so it can be unit tested in isolation and
// reused by the data-source pipeline for JSON parsing.
package ldmodel
