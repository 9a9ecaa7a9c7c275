package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomgraph/bomgraph/internal/store"
)

func newTestRollup(t *testing.T) (*RollupEngine, *StructureEngine, *store.Memory) {
	t.Helper()
	structure, mem := newTestStructure(t)
	return NewRollupEngine(mem), structure, mem
}

func TestRollupNumericAttribute_Validation(t *testing.T) {
	rollup, _, _ := newTestRollup(t)

	res := rollup.RollupNumericAttribute(context.Background(), "", "weight_kg", true)
	require.False(t, res.OK)
	assert.Contains(t, res.Errors, "root_part_number is required")

	res = rollup.RollupNumericAttribute(context.Background(), "A", "  ", true)
	require.False(t, res.OK)
	assert.Contains(t, res.Errors, "attribute_key is required")
}

func TestRollupNumericAttribute_PathMultipliers(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Assembly A", map[string]any{"weight_kg": 10})
	addPart(t, mem, "B", "Part B", map[string]any{"weight_kg": 2})
	addPart(t, mem, "C", "Part C", map[string]any{"weight_kg": 1.5})
	addPart(t, mem, "D", "Part D", map[string]any{})

	addRel(t, structure, "A", "B", 2)
	addRel(t, structure, "A", "C", 3)
	addRel(t, structure, "B", "D", 4)

	res := rollup.RollupNumericAttribute(context.Background(), "A", "weight_kg", true)
	require.True(t, res.OK, "%v", res.Errors)

	// A: 10, B: 2*2, C: 1.5*3; D contributes nothing but warns.
	assert.InDelta(t, 18.5, res.Data["total"].(float64), 1e-9)
	assert.Equal(t, []string{"Part 'D' is missing attribute 'weight_kg'"}, res.Warnings)

	breakdown := res.Data["breakdown"].([]map[string]any)
	require.Len(t, breakdown, 3)
	// Ordered by path: [A] before [A B] before [A C].
	assert.Equal(t, "A", breakdown[0]["part_number"])
	assert.Equal(t, "B", breakdown[1]["part_number"])
	assert.Equal(t, []string{"A", "B"}, breakdown[1]["path"])
	assert.InDelta(t, 4.0, breakdown[1]["contribution"].(float64), 1e-9)
}

func TestRollupNumericAttribute_ExcludeRoot(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Assembly", map[string]any{"cost": 100})
	addPart(t, mem, "B", "Bolt", map[string]any{"cost": 3})
	addRel(t, structure, "A", "B", 2)

	res := rollup.RollupNumericAttribute(context.Background(), "A", "cost", false)
	require.True(t, res.OK)
	assert.InDelta(t, 6.0, res.Data["total"].(float64), 1e-9)
	assert.Empty(t, res.Warnings)
}

func TestRollupNumericAttribute_DeepMultiplication(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Top", nil)
	addPart(t, mem, "B", "Mid", nil)
	addPart(t, mem, "C", "Leaf", map[string]any{"mass": 1})
	addRel(t, structure, "A", "B", 2)
	addRel(t, structure, "B", "C", 3)

	res := rollup.RollupNumericAttribute(context.Background(), "A", "mass", false)
	require.True(t, res.OK)
	// Multipliers multiply along the path: 2 * 3.
	assert.InDelta(t, 6.0, res.Data["total"].(float64), 1e-9)
}

func TestRollupNumericAttribute_NonNumericWarnsOnce(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Top", nil)
	addPart(t, mem, "B", "Bad", map[string]any{"mass": "heavy"})
	addPart(t, mem, "C", "Mid", nil)
	addRel(t, structure, "A", "B", 1)
	addRel(t, structure, "A", "C", 1)
	addRel(t, structure, "C", "B", 1)

	res := rollup.RollupNumericAttribute(context.Background(), "A", "mass", false)
	require.True(t, res.OK)
	assert.InDelta(t, 0.0, res.Data["total"].(float64), 1e-9)

	// B is reached via two paths; the warning is deduplicated.
	count := 0
	for _, warning := range res.Warnings {
		if warning == "Part 'B' has non-numeric 'mass': heavy" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func defaultWeightInput(root string) WeightRollupInput {
	return WeightRollupInput{
		RootPartNumber:        root,
		DefaultMaturityFactor: 1.0,
		IncludeRoot:           true,
		TopN:                  DefaultWeightTopN,
	}
}

func TestRollupWeightWithMaturity_Validation(t *testing.T) {
	rollup, _, _ := newTestRollup(t)

	input := defaultWeightInput("A")
	input.RootPartNumber = ""
	res := rollup.RollupWeightWithMaturity(context.Background(), input)
	require.False(t, res.OK)
	assert.Contains(t, res.Errors, "root_part_number is required")

	input = defaultWeightInput("A")
	input.TopN = 0
	res = rollup.RollupWeightWithMaturity(context.Background(), input)
	require.False(t, res.OK)
	assert.Contains(t, res.Errors, "top_n must be > 0")

	input = defaultWeightInput("A")
	input.DefaultMaturityFactor = -1
	res = rollup.RollupWeightWithMaturity(context.Background(), input)
	require.False(t, res.OK)
	assert.Contains(t, res.Errors, "default_maturity_factor must be > 0")
}

func TestRollupWeightWithMaturity_OverrideStopsDescent(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Assembly A", nil)
	addPart(t, mem, "B", "Weighted Subassembly",
		map[string]any{"unit_weight": 100, "maturity_factor": 1.05})
	addPart(t, mem, "C", "Fallback Branch", nil)
	addPart(t, mem, "D", "Should be ignored", map[string]any{"unit_weight": 8})
	addPart(t, mem, "E", "Leaf weight", map[string]any{"unit_weight": 2})
	addPart(t, mem, "F", "Unresolved leaf", nil)

	addRel(t, structure, "A", "B", 2)
	addRel(t, structure, "A", "C", 1)
	addRel(t, structure, "B", "D", 4)
	addRel(t, structure, "C", "E", 3)
	addRel(t, structure, "A", "F", 1)

	res := rollup.RollupWeightWithMaturity(context.Background(), defaultWeightInput("A"))
	require.True(t, res.OK, "%v", res.Errors)

	// B overrides its subtree: 2 * (100 * 1.05) = 210. C has no unit
	// weight so E contributes 1 * 3 * 2 = 6.
	assert.InDelta(t, 216.0, res.Data["total"].(float64), 1e-9)

	var breakdownParts []string
	for _, entry := range res.Data["breakdown"].([]map[string]any) {
		breakdownParts = append(breakdownParts, entry["part_number"].(string))
	}
	assert.Contains(t, breakdownParts, "B")
	assert.Contains(t, breakdownParts, "E")
	assert.NotContains(t, breakdownParts, "D")

	top := res.Data["top_contributors"].([]map[string]any)
	require.NotEmpty(t, top)
	assert.Equal(t, "B", top[0]["part_number"])
	assert.InDelta(t, 210.0, top[0]["total_contribution"].(float64), 1e-9)

	var unresolvedParts []string
	for _, entry := range res.Data["unresolved_nodes"].([]map[string]any) {
		unresolvedParts = append(unresolvedParts, entry["part_number"].(string))
	}
	assert.Contains(t, unresolvedParts, "F")
}

func TestRollupWeightWithMaturity_InvalidFactorFallsBack(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Root", nil)
	addPart(t, mem, "B", "Bad factor",
		map[string]any{"unit_weight": 10, "maturity_factor": "soon"})
	addRel(t, structure, "A", "B", 1)

	input := defaultWeightInput("A")
	input.DefaultMaturityFactor = 2.0
	res := rollup.RollupWeightWithMaturity(context.Background(), input)
	require.True(t, res.OK)

	assert.InDelta(t, 20.0, res.Data["total"].(float64), 1e-9)
	assert.Contains(t, res.Warnings,
		"Part 'B' has invalid 'maturity_factor': soon (using default)")
}

func TestRollupWeightWithMaturity_MissingPartDescends(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Root", nil)
	addPart(t, mem, "C", "Leaf", map[string]any{"unit_weight": 5})

	res := structure.AddOrUpdateRelationship(context.Background(), RelationshipInput{
		ParentPartNumber: "A", ChildPartNumber: "GHOST", Qty: 2, AllowDangling: true,
	})
	require.True(t, res.OK)
	res = structure.AddOrUpdateRelationship(context.Background(), RelationshipInput{
		ParentPartNumber: "GHOST", ChildPartNumber: "C", Qty: 3, AllowDangling: true,
	})
	require.True(t, res.OK)

	out := rollup.RollupWeightWithMaturity(context.Background(), defaultWeightInput("A"))
	require.True(t, out.OK)

	// The missing node propagates its multiplier: 2 * 3 * 5.
	assert.InDelta(t, 30.0, out.Data["total"].(float64), 1e-9)
	assert.Contains(t, out.Warnings, "Part 'GHOST' is missing from catalog")
}

func TestRollupWeightWithMaturity_TopNTruncates(t *testing.T) {
	rollup, structure, mem := newTestRollup(t)
	addPart(t, mem, "A", "Root", nil)
	for _, leaf := range []struct {
		pn     string
		weight float64
	}{{"B", 5}, {"C", 3}, {"D", 1}} {
		addPart(t, mem, leaf.pn, leaf.pn, map[string]any{"unit_weight": leaf.weight})
		addRel(t, structure, "A", leaf.pn, 1)
	}

	input := defaultWeightInput("A")
	input.TopN = 2
	res := rollup.RollupWeightWithMaturity(context.Background(), input)
	require.True(t, res.OK)

	top := res.Data["top_contributors"].([]map[string]any)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0]["part_number"])
	assert.Equal(t, "C", top[1]["part_number"])

	partTotals := res.Data["part_totals"].([]map[string]any)
	assert.Len(t, partTotals, 3)
}
