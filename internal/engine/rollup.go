package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bomgraph/bomgraph/internal/canonical"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// RollupEngine aggregates numeric attributes over the parts graph.
//
// Both rollups run a multi-path unrolled breadth-first traversal: a part
// reachable via two distinct parents contributes once per path, each
// occurrence scaled by its own path multiplier, because each path
// represents an independent physical instance. Termination rests on the
// acyclicity invariant the structure engine enforces.
type RollupEngine struct {
	graph store.GraphStore
}

// NewRollupEngine builds a rollup engine over a graph store.
func NewRollupEngine(graph store.GraphStore) *RollupEngine {
	return &RollupEngine{graph: graph}
}

// pathEntry is one queue element of the multi-path traversal.
type pathEntry struct {
	partNumber string
	multiplier float64
	path       []string
}

// warningLog deduplicates warnings while preserving first-seen order.
type warningLog struct {
	seen    map[string]struct{}
	ordered []string
}

func newWarningLog() *warningLog {
	return &warningLog{seen: make(map[string]struct{})}
}

func (w *warningLog) add(message string) {
	if _, ok := w.seen[message]; ok {
		return
	}
	w.seen[message] = struct{}{}
	w.ordered = append(w.ordered, message)
}

func (w *warningLog) addf(format string, args ...any) {
	w.add(fmt.Sprintf(format, args...))
}

// RollupNumericAttribute sums a numeric attribute over every path from
// the root, each contribution scaled by the product of the relationship
// quantities along its path.
//
// A missing part, missing attribute or non-numeric value never aborts the
// rollup: it becomes a deduplicated warning, the node's contribution is
// skipped, and descent continues with the propagated multiplier.
func (e *RollupEngine) RollupNumericAttribute(ctx context.Context, rootPartNumber, attributeKey string, includeRoot bool) (res result.Result) {
	defer result.Guard("rollup_numeric_attribute", &res)

	root := strings.TrimSpace(rootPartNumber)
	key := strings.TrimSpace(attributeKey)
	if root == "" {
		return result.FailErr(validationf("root_part_number is required"))
	}
	if key == "" {
		return result.FailErr(validationf("attribute_key is required"))
	}

	queue := []pathEntry{{partNumber: root, multiplier: 1.0, path: []string{root}}}
	total := 0.0
	warnings := newWarningLog()
	var breakdown []map[string]any

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		isRoot := len(entry.path) == 1

		if includeRoot || !isRoot {
			part, ok, err := e.graph.GetPart(ctx, entry.partNumber)
			if err != nil {
				return result.FailErr(err)
			}
			switch {
			case !ok:
				warnings.addf("Part '%s' is missing from catalog", entry.partNumber)
			default:
				raw, present := part.Attributes[key]
				if !present || raw == nil {
					warnings.addf("Part '%s' is missing attribute '%s'", entry.partNumber, key)
					break
				}
				value, numeric := canonical.AsFloat(raw)
				if !numeric {
					warnings.addf("Part '%s' has non-numeric '%s': %v", entry.partNumber, key, raw)
					break
				}
				contribution := value * entry.multiplier
				total += contribution
				breakdown = append(breakdown, map[string]any{
					"part_number":     entry.partNumber,
					"path":            append([]string{}, entry.path...),
					"multiplier":      entry.multiplier,
					"attribute_value": value,
					"contribution":    contribution,
				})
			}
		}

		children, err := e.graph.FindChildren(ctx, entry.partNumber)
		if err != nil {
			return result.FailErr(err)
		}
		for _, rel := range children {
			queue = append(queue, pathEntry{
				partNumber: rel.ChildPartNumber,
				multiplier: entry.multiplier * rel.Qty,
				path:       appendPath(entry.path, rel.ChildPartNumber),
			})
		}
	}

	sortBreakdown(breakdown)
	return result.Ok(map[string]any{
		"root_part_number": root,
		"attribute_key":    key,
		"include_root":     includeRoot,
		"total":            total,
		"breakdown":        breakdown,
	}, warnings.ordered...)
}

// WeightRollupInput carries the parameters of RollupWeightWithMaturity.
// Empty keys default to "unit_weight" and "maturity_factor".
type WeightRollupInput struct {
	RootPartNumber        string
	UnitWeightKey         string
	MaturityFactorKey     string
	DefaultMaturityFactor float64
	IncludeRoot           bool
	TopN                  int
}

// Defaults for WeightRollupInput.
const (
	DefaultUnitWeightKey     = "unit_weight"
	DefaultMaturityFactorKey = "maturity_factor"
	DefaultWeightTopN        = 10
)

// RollupWeightWithMaturity computes effective weight over the graph using
// an override model: a node that supplies a unit weight encapsulates its
// whole subtree, so its children are not traversed further on that path.
//
//	effective_unit_weight = unit_weight * maturity_factor
//	contribution          = effective_unit_weight * path multiplier
//
// The maturity factor comes from the node's own attribute when valid and
// positive, else from DefaultMaturityFactor (with a warning on invalid or
// non-positive values). Nodes that resolve nothing (a missing part with
// no children, or an in-scope part with neither unit weight nor children)
// are reported in unresolved_nodes. Per-part totals are ranked descending
// by contribution (ties by part number) and truncated to TopN in
// top_contributors.
func (e *RollupEngine) RollupWeightWithMaturity(ctx context.Context, input WeightRollupInput) (res result.Result) {
	defer result.Guard("rollup_weight_with_maturity", &res)

	root := strings.TrimSpace(input.RootPartNumber)
	if root == "" {
		return result.FailErr(validationf("root_part_number is required"))
	}
	unitWeightKey := strings.TrimSpace(input.UnitWeightKey)
	if unitWeightKey == "" {
		unitWeightKey = DefaultUnitWeightKey
	}
	maturityKey := strings.TrimSpace(input.MaturityFactorKey)
	if maturityKey == "" {
		maturityKey = DefaultMaturityFactorKey
	}
	if input.TopN <= 0 {
		return result.FailErr(validationf("top_n must be > 0"))
	}
	if math.IsNaN(input.DefaultMaturityFactor) || math.IsInf(input.DefaultMaturityFactor, 0) {
		return result.FailErr(validationf("default_maturity_factor must be numeric"))
	}
	if input.DefaultMaturityFactor <= 0 {
		return result.FailErr(validationf("default_maturity_factor must be > 0"))
	}

	queue := []pathEntry{{partNumber: root, multiplier: 1.0, path: []string{root}}}
	total := 0.0
	warnings := newWarningLog()
	var breakdown []map[string]any
	var unresolved []map[string]any

	type partTotal struct {
		total       float64
		occurrences int
	}
	totals := make(map[string]*partTotal)

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		isRoot := len(entry.path) == 1
		inScope := input.IncludeRoot || !isRoot

		part, ok, err := e.graph.GetPart(ctx, entry.partNumber)
		if err != nil {
			return result.FailErr(err)
		}

		children, err := e.graph.FindChildren(ctx, entry.partNumber)
		if err != nil {
			return result.FailErr(err)
		}

		descend := true
		if !ok {
			warnings.addf("Part '%s' is missing from catalog", entry.partNumber)
			if len(children) == 0 {
				unresolved = append(unresolved, map[string]any{
					"part_number": entry.partNumber,
					"path":        append([]string{}, entry.path...),
					"reason":      "missing part and no children",
				})
			}
		} else if inScope {
			raw, present := part.Attributes[unitWeightKey]
			unitWeight, numeric := canonical.AsFloat(raw)
			switch {
			case present && raw != nil && numeric:
				factor := e.maturityFactor(part.Attributes[maturityKey], input.DefaultMaturityFactor,
					entry.partNumber, maturityKey, warnings)
				effective := unitWeight * factor
				contribution := effective * entry.multiplier
				total += contribution
				breakdown = append(breakdown, map[string]any{
					"part_number":           entry.partNumber,
					"path":                  append([]string{}, entry.path...),
					"multiplier":            entry.multiplier,
					"unit_weight":           unitWeight,
					"maturity_factor":       factor,
					"effective_unit_weight": effective,
					"contribution":          contribution,
				})
				agg := totals[entry.partNumber]
				if agg == nil {
					agg = &partTotal{}
					totals[entry.partNumber] = agg
				}
				agg.total += contribution
				agg.occurrences++
				// The override encapsulates the subtree below it.
				descend = false
			case present && raw != nil && !numeric:
				warnings.addf("Part '%s' has non-numeric '%s': %v", entry.partNumber, unitWeightKey, raw)
				fallthrough
			default:
				if len(children) == 0 {
					unresolved = append(unresolved, map[string]any{
						"part_number": entry.partNumber,
						"path":        append([]string{}, entry.path...),
						"reason":      "no unit weight and no children",
					})
				}
			}
		}

		if !descend {
			continue
		}
		for _, rel := range children {
			queue = append(queue, pathEntry{
				partNumber: rel.ChildPartNumber,
				multiplier: entry.multiplier * rel.Qty,
				path:       appendPath(entry.path, rel.ChildPartNumber),
			})
		}
	}

	sortBreakdown(breakdown)

	partTotals := make([]map[string]any, 0, len(totals))
	for partNumber, agg := range totals {
		partTotals = append(partTotals, map[string]any{
			"part_number":        partNumber,
			"total_contribution": agg.total,
			"occurrences":        agg.occurrences,
		})
	}
	sort.Slice(partTotals, func(i, j int) bool {
		ti := partTotals[i]["total_contribution"].(float64)
		tj := partTotals[j]["total_contribution"].(float64)
		if ti != tj {
			return ti > tj
		}
		return partTotals[i]["part_number"].(string) < partTotals[j]["part_number"].(string)
	})
	topContributors := partTotals
	if len(topContributors) > input.TopN {
		topContributors = topContributors[:input.TopN]
	}

	return result.Ok(map[string]any{
		"root_part_number":        root,
		"unit_weight_key":         unitWeightKey,
		"maturity_factor_key":     maturityKey,
		"default_maturity_factor": input.DefaultMaturityFactor,
		"include_root":            input.IncludeRoot,
		"total":                   total,
		"breakdown":               breakdown,
		"part_totals":             partTotals,
		"top_contributors":        topContributors,
		"unresolved_nodes":        unresolved,
	}, warnings.ordered...)
}

// maturityFactor resolves a node's maturity factor: its own attribute
// when numeric and positive, else the default with a warning.
func (e *RollupEngine) maturityFactor(raw any, fallback float64, partNumber, key string, warnings *warningLog) float64 {
	if raw == nil {
		return fallback
	}
	factor, numeric := canonical.AsFloat(raw)
	if !numeric || factor <= 0 {
		warnings.addf("Part '%s' has invalid '%s': %v (using default)", partNumber, key, raw)
		return fallback
	}
	return factor
}

// appendPath copies the path before extending it; queue entries must not
// share backing arrays.
func appendPath(path []string, next string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, next)
}

// sortBreakdown orders breakdown entries by (path, part_number).
func sortBreakdown(breakdown []map[string]any) {
	sort.Slice(breakdown, func(i, j int) bool {
		pi := strings.Join(breakdown[i]["path"].([]string), "\x00")
		pj := strings.Join(breakdown[j]["path"].([]string), "\x00")
		if pi != pj {
			return pi < pj
		}
		return breakdown[i]["part_number"].(string) < breakdown[j]["part_number"].(string)
	})
}
