package toposort

import (
	"testing"

	"github.com/launchdarkly/go-server-sdk-flagcore/internal/datakinds"
	st "github.com/launchdarkly/go-server-sdk-flagcore/internal/ldstoretypes"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldmodel"
	"github.com/launchdarkly/go-server-sdk-flagcore/ldvalue"
	"github.com/stretchr/testify/assert"
)

func stringValues(values ...string) []ldvalue.Value {
	out := make([]ldvalue.Value, len(values))
	for i, v := range values {
		out[i] = ldvalue.String(v)
	}
	return out
}

func flagCollectionItem(key string, prereqs ...string) st.KeyedItemDescriptor {
	flag := ldmodel.FeatureFlag{Key: key}
	for _, p := range prereqs {
		flag.Prerequisites = append(flag.Prerequisites, ldmodel.Prerequisite{Key: p})
	}
	return st.KeyedItemDescriptor{Key: key, Item: st.ItemDescriptor{Version: 1, Item: &flag}}
}

func indexOf(items []st.KeyedItemDescriptor, key string) int {
	for i, item := range items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

func TestSegmentsComeBeforeFeatures(t *testing.T) {
	input := []st.Collection{
		{Kind: datakinds.Features, Items: []st.KeyedItemDescriptor{flagCollectionItem("f1")}},
		{Kind: datakinds.Segments, Items: nil},
	}
	out := Sort(input)
	require := assert.New(t)
	require.Len(out, 2)
	require.Equal(datakinds.Segments, out[0].Kind)
	require.Equal(datakinds.Features, out[1].Kind)
}

func TestPrerequisiteFlagsAreOrderedBeforeDependents(t *testing.T) {
	// c depends on b, b depends on a; whatever order they arrive in, a must end up before b,
	// and b before c (spec §4.6).
	input := []st.Collection{
		{Kind: datakinds.Features, Items: []st.KeyedItemDescriptor{
			flagCollectionItem("c", "b"),
			flagCollectionItem("a"),
			flagCollectionItem("b", "a"),
		}},
	}
	out := Sort(input)
	items := out[0].Items
	assert.Less(t, indexOf(items, "a"), indexOf(items, "b"))
	assert.Less(t, indexOf(items, "b"), indexOf(items, "c"))
}

func TestGetNeighborsFindsPrerequisitesAndSegmentMatchClauses(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:           "f1",
		Prerequisites: []ldmodel.Prerequisite{{Key: "p1"}},
		Rules: []ldmodel.Rule{
			{Clauses: []ldmodel.Clause{{Op: ldmodel.OperatorSegmentMatch, Values: stringValues("seg1")}}},
		},
	}
	neighbors := GetNeighbors(datakinds.Features, st.ItemDescriptor{Item: &flag})
	assert.True(t, neighbors.Contains(NewVertex(datakinds.Features, "p1")))
	assert.True(t, neighbors.Contains(NewVertex(datakinds.Segments, "seg1")))
}
