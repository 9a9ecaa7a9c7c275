// Package catalog implements the part catalog: the flat registry of part
// records the graph engines reference by part number.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/bomgraph/bomgraph/internal/clock"
	"github.com/bomgraph/bomgraph/internal/model"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// Service provides part CRUD over a graph store. Relationship reference
// counts guard deletion, which is why the service needs the relationship
// side of the store as well.
type Service struct {
	graph store.GraphStore
	clk   clock.Clock
}

// NewService builds a catalog service.
func NewService(graph store.GraphStore, clk clock.Clock) *Service {
	return &Service{graph: graph, clk: clk}
}

// PartInput carries the parameters of AddOrUpdatePart. LastUpdated is
// normally left empty so the service stamps the current time; CSV import
// passes through source timestamps. MergeAttributes controls updates of
// an existing part: true unions attributes with incoming values winning,
// false replaces the map wholesale.
type PartInput struct {
	PartNumber      string
	Name            string
	Attributes      map[string]any
	LastUpdated     string
	MergeAttributes bool
}

// AddOrUpdatePart creates or updates a part record.
func (s *Service) AddOrUpdatePart(ctx context.Context, input PartInput) (res result.Result) {
	defer result.Guard("add_or_update_part", &res)

	partNumber := strings.TrimSpace(input.PartNumber)
	name := strings.TrimSpace(input.Name)
	if partNumber == "" {
		return result.Fail("part_number is required")
	}
	if name == "" {
		return result.Fail("name is required")
	}

	existing, exists, err := s.graph.GetPart(ctx, partNumber)
	if err != nil {
		return result.FailErr(err)
	}

	attributes := model.CopyAttributes(input.Attributes)
	if exists && input.MergeAttributes {
		attributes = model.MergeAttributes(existing.Attributes, input.Attributes)
	}

	lastUpdated := input.LastUpdated
	if lastUpdated == "" {
		lastUpdated = clock.ISO(s.clk.Now())
	}

	part := model.Part{
		PartNumber:  partNumber,
		Name:        name,
		LastUpdated: lastUpdated,
		Attributes:  attributes,
	}
	if err := s.graph.UpsertPart(ctx, part); err != nil {
		return result.FailErr(err)
	}

	return result.Ok(map[string]any{
		"part":    part.Record(),
		"created": !exists,
	})
}

// GetPart returns one part record by part number.
func (s *Service) GetPart(ctx context.Context, partNumber string) (res result.Result) {
	defer result.Guard("get_part", &res)

	part, ok, err := s.graph.GetPart(ctx, strings.TrimSpace(partNumber))
	if err != nil {
		return result.FailErr(err)
	}
	if !ok {
		return result.Fail(fmt.Sprintf("Part '%s' not found", partNumber))
	}
	return result.Ok(map[string]any{"part": part.Record()})
}

// ListParts lists all parts ordered by part number. A non-empty query
// filters case-insensitively over part number and name.
func (s *Service) ListParts(ctx context.Context, query string) (res result.Result) {
	defer result.Guard("list_parts", &res)

	parts, err := s.graph.ListParts(ctx)
	if err != nil {
		return result.FailErr(err)
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	records := make([]map[string]any, 0, len(parts))
	for _, part := range parts {
		if needle != "" &&
			!strings.Contains(strings.ToLower(part.PartNumber), needle) &&
			!strings.Contains(strings.ToLower(part.Name), needle) {
			continue
		}
		records = append(records, part.Record())
	}
	return result.Ok(map[string]any{"parts": records})
}

// UpdateAttributes updates a part's attributes in place and re-stamps its
// last_updated. The part must exist.
func (s *Service) UpdateAttributes(ctx context.Context, partNumber string, attributes map[string]any, merge bool) (res result.Result) {
	defer result.Guard("update_attributes", &res)

	existing, ok, err := s.graph.GetPart(ctx, strings.TrimSpace(partNumber))
	if err != nil {
		return result.FailErr(err)
	}
	if !ok {
		return result.Fail(fmt.Sprintf("Part '%s' not found", partNumber))
	}

	updated := model.CopyAttributes(attributes)
	if merge {
		updated = model.MergeAttributes(existing.Attributes, attributes)
	}

	part := model.Part{
		PartNumber:  existing.PartNumber,
		Name:        existing.Name,
		LastUpdated: clock.ISO(s.clk.Now()),
		Attributes:  updated,
	}
	if err := s.graph.UpsertPart(ctx, part); err != nil {
		return result.FailErr(err)
	}
	return result.Ok(map[string]any{"part": part.Record()})
}

// DeletePart removes a part. Unless allowIfReferenced, a part that still
// appears as an endpoint of any relationship cannot be deleted; deleting
// it anyway leaves those edges dangling.
func (s *Service) DeletePart(ctx context.Context, partNumber string, allowIfReferenced bool) (res result.Result) {
	defer result.Guard("delete_part", &res)

	partNumber = strings.TrimSpace(partNumber)
	if partNumber == "" {
		return result.Fail("part_number is required")
	}

	if !allowIfReferenced {
		references, err := s.graph.CountPartReferences(ctx, partNumber)
		if err != nil {
			return result.FailErr(err)
		}
		if references > 0 {
			return result.Fail(fmt.Sprintf(
				"Part '%s' has %d relationship references and cannot be deleted",
				partNumber, references))
		}
	}

	deleted, err := s.graph.DeletePart(ctx, partNumber)
	if err != nil {
		return result.FailErr(err)
	}
	if !deleted {
		return result.Fail(fmt.Sprintf("Part '%s' not found", partNumber))
	}
	return result.Ok(map[string]any{"deleted": true, "part_number": partNumber})
}
