// Package datakinds provides the two concrete ldstoretypes.DataKind values the evaluator and data
// store deal in: feature flags and segments (spec §3, §4.5, §4.6).
package datakinds

import (
	"encoding/json"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldmodel"
)

type featuresKind struct{}

func (featuresKind) GetName() string { return "features" }

// Serialize marshals a flag item descriptor to JSON, tombstones included (spec §3).
func (featuresKind) Serialize(item ldstoretypes.ItemDescriptor) ([]byte, error) {
	if item.Item == nil {
		return json.Marshal(deletedItemPlaceholder{Version: item.Version, Deleted: true})
	}
	return json.Marshal(item.Item)
}

// Deserialize parses one flag's JSON into an ItemDescriptor.
func (featuresKind) Deserialize(data []byte) (ldstoretypes.ItemDescriptor, error) {
	var flag ldmodel.FeatureFlag
	if err := json.Unmarshal(data, &flag); err != nil {
		return ldstoretypes.ItemDescriptor{}, err
	}
	ldmodel.PreprocessFlag(&flag)
	if flag.Deleted {
		return ldstoretypes.ItemDescriptor{Version: flag.Version, Item: nil}, nil
	}
	return ldstoretypes.ItemDescriptor{Version: flag.Version, Item: &flag}, nil
}

type segmentsKind struct{}

func (segmentsKind) GetName() string { return "segments" }

func (segmentsKind) Serialize(item ldstoretypes.ItemDescriptor) ([]byte, error) {
	if item.Item == nil {
		return json.Marshal(deletedItemPlaceholder{Version: item.Version, Deleted: true})
	}
	return json.Marshal(item.Item)
}

func (segmentsKind) Deserialize(data []byte) (ldstoretypes.ItemDescriptor, error) {
	var segment ldmodel.Segment
	if err := json.Unmarshal(data, &segment); err != nil {
		return ldstoretypes.ItemDescriptor{}, err
	}
	ldmodel.PreprocessSegment(&segment)
	if segment.Deleted {
		return ldstoretypes.ItemDescriptor{Version: segment.Version, Item: nil}, nil
	}
	return ldstoretypes.ItemDescriptor{Version: segment.Version, Item: &segment}, nil
}

type deletedItemPlaceholder struct {
	Version int  `json:"version"`
	Deleted bool `json:"deleted"`
}

// Features is the DataKind for feature flags.
var Features = featuresKind{}

// Segments is the DataKind for segments.
var Segments = segmentsKind{}

// AllKinds lists every data kind the store knows about, in no particular order; the dependency
// sorter is responsible for ordering them (spec §4.6).
var AllKinds = []ldstoretypes.DataKind{Features, Segments}
