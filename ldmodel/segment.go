package ldmodel

// Segment is a named, reusable cohort of users referenced from clauses via OperatorSegmentMatch
// (spec §3, §4.4).
type Segment struct {
	Key      string        `json:"key"`
	Version  int           `json:"version"`
	Salt     string        `json:"salt"`
	Included []string      `json:"included"`
	Excluded []string      `json:"excluded"`
	Rules    []SegmentRule `json:"rules"`
	Deleted  bool          `json:"deleted"`

	preprocessed segmentPreprocessedData
}

// segmentPreprocessedData caches the included/excluded lists as sets so membership checks in the
// evaluator's hot path are O(1) instead of a linear scan (spec §4.4 steps 1-2).
type segmentPreprocessedData struct {
	includedSet map[string]bool
	excludedSet map[string]bool
}

// SegmentRule is a conditional, optionally weighted rule for segment membership (spec §3, §4.4
// step 3). Unlike a flag Rule, it never resolves to a variation; it only determines inclusion.
type SegmentRule struct {
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"`
	BucketBy *string  `json:"bucketBy,omitempty"`
}
