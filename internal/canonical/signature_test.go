package canonical

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomgraph/bomgraph/internal/model"
)

func fixtureParts() []model.Part {
	return []model.Part{
		{
			PartNumber:  "A",
			Name:        "Assembly",
			LastUpdated: "2026-01-02T03:04:05Z",
			Attributes:  map[string]any{"cost": 5, "grade": "a"},
		},
		{
			PartNumber:  "B",
			Name:        "Bolt",
			LastUpdated: "2026-01-02T03:04:05Z",
			Attributes:  map[string]any{"unit_weight": 0.5},
		},
	}
}

func fixtureRels() []model.Relationship {
	return []model.Relationship{
		{
			RelID:            "rel_1",
			ParentPartNumber: "A",
			ChildPartNumber:  "B",
			Qty:              2.0,
			LastUpdated:      "2026-01-02T03:04:05Z",
			Attributes:       map[string]any{},
		},
	}
}

func TestSnapshotPayload_Golden(t *testing.T) {
	payload, err := SnapshotPayload("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)
	encoded, err := Marshal(payload)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "snapshot_payload", encoded)
}

func TestBuildSignature_Deterministic(t *testing.T) {
	sigA, err := BuildSignature("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)
	sigB, err := BuildSignature("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)

	assert.Equal(t, sigA, sigB)
	assert.Len(t, sigA, 64)
}

func TestBuildSignature_InputOrderIrrelevant(t *testing.T) {
	parts := fixtureParts()
	reversedParts := []model.Part{parts[1], parts[0]}

	sigA, err := BuildSignature("A", parts, fixtureRels())
	require.NoError(t, err)
	sigB, err := BuildSignature("A", reversedParts, fixtureRels())
	require.NoError(t, err)

	assert.Equal(t, sigA, sigB)
}

func TestBuildSignature_NumericSpellingIrrelevant(t *testing.T) {
	intQty := fixtureRels()
	intQty[0].Qty = 2

	withNumber := fixtureParts()
	withNumber[0].Attributes["cost"] = json.Number("5.00")

	sigA, err := BuildSignature("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)
	sigB, err := BuildSignature("A", withNumber, intQty)
	require.NoError(t, err)

	assert.Equal(t, sigA, sigB)
}

func TestBuildSignature_ContentSensitive(t *testing.T) {
	base, err := BuildSignature("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)

	changedQty := fixtureRels()
	changedQty[0].Qty = 3
	sigQty, err := BuildSignature("A", fixtureParts(), changedQty)
	require.NoError(t, err)
	assert.NotEqual(t, base, sigQty)

	changedAttr := fixtureParts()
	changedAttr[1].Attributes["unit_weight"] = 0.75
	sigAttr, err := BuildSignature("A", changedAttr, fixtureRels())
	require.NoError(t, err)
	assert.NotEqual(t, base, sigAttr)

	sigRoot, err := BuildSignature("B", fixtureParts(), fixtureRels())
	require.NoError(t, err)
	assert.NotEqual(t, base, sigRoot)
}

func TestBuildSignature_LastUpdatedIsContent(t *testing.T) {
	base, err := BuildSignature("A", fixtureParts(), fixtureRels())
	require.NoError(t, err)

	touched := fixtureParts()
	touched[0].LastUpdated = "2026-06-07T08:09:10Z"
	sig, err := BuildSignature("A", touched, fixtureRels())
	require.NoError(t, err)
	assert.NotEqual(t, base, sig)
}

func TestRelationshipSortKey_OrdersByCanonicalQty(t *testing.T) {
	a := model.Relationship{RelID: "r1", ParentPartNumber: "P", ChildPartNumber: "C", Qty: 2.0}
	b := model.Relationship{RelID: "r2", ParentPartNumber: "P", ChildPartNumber: "C", Qty: 2}
	// Identical canonical qty text: ordering falls through to rel_id.
	assert.Less(t, RelationshipSortKey(a), RelationshipSortKey(b))
}
