// Package csvio implements CSV interchange for the part catalog and the
// relationship set: bulk import with per-row error reporting and flat
// exports with attribute column whitelists.
package csvio

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bomgraph/bomgraph/internal/canonical"
	"github.com/bomgraph/bomgraph/internal/catalog"
	"github.com/bomgraph/bomgraph/internal/engine"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// Reserved column sets. Every other column is an attribute column; an
// "attr__" prefix is stripped from the attribute key when present.
var (
	partReserved = map[string]struct{}{
		"part_number": {}, "name": {}, "last_updated": {}, "attributes_json": {},
	}
	relReserved = map[string]struct{}{
		"rel_id": {}, "parent_part_number": {}, "child_part_number": {},
		"qty": {}, "last_updated": {}, "attributes_json": {},
	}
)

// Service moves parts and relationships between CSV files and the graph.
// Imports route through the catalog service and the structure engine so
// every row gets full validation; a row that fails validation is recorded
// and skipped, it never aborts the file.
type Service struct {
	catalog   *catalog.Service
	structure *engine.StructureEngine
	graph     store.GraphStore
}

// NewService builds a CSV interchange service.
func NewService(cat *catalog.Service, structure *engine.StructureEngine, graph store.GraphStore) *Service {
	return &Service{catalog: cat, structure: structure, graph: graph}
}

// ImportPartsCSV imports a parts CSV. Required columns: part_number,
// name. Optional: last_updated, attributes_json, plus free attribute
// columns. Data rows number from 2 (row 1 is the header) in row errors
// and warnings.
func (s *Service) ImportPartsCSV(ctx context.Context, csvPath string, mergeAttributes bool) (res result.Result) {
	defer result.Guard("import_parts_csv", &res)

	rows, header, failure := readCSV(csvPath, []string{"part_number", "name"}, "parts")
	if failure != nil {
		return *failure
	}

	created, updated := 0, 0
	var rowErrors []string
	var warnings []string

	for i, row := range rows {
		rowNum := i + 2
		record := namedRow(header, row)

		partNumber := strings.TrimSpace(record["part_number"])
		name := strings.TrimSpace(record["name"])
		if partNumber == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: part_number is required", rowNum))
			continue
		}
		if name == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: name is required", rowNum))
			continue
		}

		attributes, attrWarnings := extractAttributes(record, partReserved)
		for _, warning := range attrWarnings {
			warnings = append(warnings, fmt.Sprintf("Row %d: %s", rowNum, warning))
		}

		partRes := s.catalog.AddOrUpdatePart(ctx, catalog.PartInput{
			PartNumber:      partNumber,
			Name:            name,
			Attributes:      attributes,
			LastUpdated:     strings.TrimSpace(record["last_updated"]),
			MergeAttributes: mergeAttributes,
		})
		if !partRes.OK {
			rowErrors = append(rowErrors,
				fmt.Sprintf("Row %d: %s", rowNum, strings.Join(partRes.Errors, "; ")))
			continue
		}
		if partRes.Data["created"].(bool) {
			created++
		} else {
			updated++
		}
	}

	return result.Ok(map[string]any{
		"file":        csvPath,
		"created":     created,
		"updated":     updated,
		"failed_rows": len(rowErrors),
		"row_errors":  stringsOrEmpty(rowErrors),
	}, warnings...)
}

// ImportRelationshipsCSV imports a relationships CSV. Required columns:
// parent_part_number, child_part_number, qty. Optional: rel_id,
// last_updated, attributes_json, plus free attribute columns. Structure
// engine warnings (dangling endpoints) surface per row.
func (s *Service) ImportRelationshipsCSV(ctx context.Context, csvPath string, allowDangling, mergeAttributes bool) (res result.Result) {
	defer result.Guard("import_relationships_csv", &res)

	rows, header, failure := readCSV(csvPath,
		[]string{"parent_part_number", "child_part_number", "qty"}, "relationships")
	if failure != nil {
		return *failure
	}

	created, updated := 0, 0
	var rowErrors []string
	var warnings []string

	for i, row := range rows {
		rowNum := i + 2
		record := namedRow(header, row)

		parent := strings.TrimSpace(record["parent_part_number"])
		child := strings.TrimSpace(record["child_part_number"])
		if parent == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: parent_part_number is required", rowNum))
			continue
		}
		if child == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: child_part_number is required", rowNum))
			continue
		}
		qty, ok := ParseQty(record["qty"])
		if !ok {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: qty must be numeric", rowNum))
			continue
		}

		attributes, attrWarnings := extractAttributes(record, relReserved)
		for _, warning := range attrWarnings {
			warnings = append(warnings, fmt.Sprintf("Row %d: %s", rowNum, warning))
		}

		relRes := s.structure.AddOrUpdateRelationship(ctx, engine.RelationshipInput{
			ParentPartNumber: parent,
			ChildPartNumber:  child,
			Qty:              qty,
			RelID:            strings.TrimSpace(record["rel_id"]),
			Attributes:       attributes,
			LastUpdated:      strings.TrimSpace(record["last_updated"]),
			AllowDangling:    allowDangling,
			MergeAttributes:  mergeAttributes,
		})
		if !relRes.OK {
			rowErrors = append(rowErrors,
				fmt.Sprintf("Row %d: %s", rowNum, strings.Join(relRes.Errors, "; ")))
			continue
		}
		if relRes.Data["created"].(bool) {
			created++
		} else {
			updated++
		}
		for _, warning := range relRes.Warnings {
			warnings = append(warnings, fmt.Sprintf("Row %d: %s", rowNum, warning))
		}
	}

	return result.Ok(map[string]any{
		"file":        csvPath,
		"created":     created,
		"updated":     updated,
		"failed_rows": len(rowErrors),
		"row_errors":  stringsOrEmpty(rowErrors),
	}, warnings...)
}

// ExportPartsCSV writes all parts to a CSV. Whitelisted attribute keys
// become their own columns; attributes_json carries the full canonical
// attribute map when included.
func (s *Service) ExportPartsCSV(ctx context.Context, csvPath string, attributeWhitelist []string, includeAttributesJSON bool) (res result.Result) {
	defer result.Guard("export_parts_csv", &res)

	columns := append([]string{"part_number", "name", "last_updated"}, attributeWhitelist...)
	if includeAttributesJSON {
		columns = append(columns, "attributes_json")
	}

	parts, err := s.graph.ListParts(ctx)
	if err != nil {
		return result.FailErr(err)
	}

	records := make([][]string, 0, len(parts))
	for _, part := range parts {
		row := []string{part.PartNumber, part.Name, part.LastUpdated}
		for _, key := range attributeWhitelist {
			row = append(row, cellValue(part.Attributes[key]))
		}
		if includeAttributesJSON {
			encoded, err := canonical.Marshal(attributesOrEmpty(part.Attributes))
			if err != nil {
				return result.FailErr(err)
			}
			row = append(row, string(encoded))
		}
		records = append(records, row)
	}

	if err := writeCSV(csvPath, columns, records); err != nil {
		return result.FailErr(err)
	}
	return result.Ok(map[string]any{
		"file":    csvPath,
		"rows":    len(parts),
		"columns": columns,
	})
}

// ExportRelationshipsCSV writes all relationships to a CSV, ordered by
// (parent, child, qty, rel_id) like every other listing.
func (s *Service) ExportRelationshipsCSV(ctx context.Context, csvPath string, attributeWhitelist []string, includeAttributesJSON bool) (res result.Result) {
	defer result.Guard("export_relationships_csv", &res)

	columns := append([]string{
		"rel_id", "parent_part_number", "child_part_number", "qty", "last_updated",
	}, attributeWhitelist...)
	if includeAttributesJSON {
		columns = append(columns, "attributes_json")
	}

	rels, err := s.graph.ListRelationships(ctx)
	if err != nil {
		return result.FailErr(err)
	}

	records := make([][]string, 0, len(rels))
	for _, rel := range rels {
		row := []string{
			rel.RelID, rel.ParentPartNumber, rel.ChildPartNumber,
			canonical.Number(rel.Qty), rel.LastUpdated,
		}
		for _, key := range attributeWhitelist {
			row = append(row, cellValue(rel.Attributes[key]))
		}
		if includeAttributesJSON {
			encoded, err := canonical.Marshal(attributesOrEmpty(rel.Attributes))
			if err != nil {
				return result.FailErr(err)
			}
			row = append(row, string(encoded))
		}
		records = append(records, row)
	}

	if err := writeCSV(csvPath, columns, records); err != nil {
		return result.FailErr(err)
	}
	return result.Ok(map[string]any{
		"file":    csvPath,
		"rows":    len(rels),
		"columns": columns,
	})
}

// extractAttributes assembles a row's attribute map: the attributes_json
// column first, then free columns overriding it key by key.
func extractAttributes(record map[string]string, reserved map[string]struct{}) (map[string]any, []string) {
	attributes := map[string]any{}
	var warnings []string

	if raw := strings.TrimSpace(record["attributes_json"]); raw != "" {
		decoder := json.NewDecoder(strings.NewReader(raw))
		decoder.UseNumber()
		var parsed any
		if err := decoder.Decode(&parsed); err != nil {
			warnings = append(warnings, "attributes_json was invalid JSON and was ignored")
		} else if object, ok := parsed.(map[string]any); ok {
			for key, value := range object {
				attributes[key] = value
			}
		} else {
			warnings = append(warnings, "attributes_json was not a JSON object and was ignored")
		}
	}

	for key, raw := range record {
		if _, ok := reserved[key]; ok {
			continue
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		attrKey := strings.TrimPrefix(key, "attr__")
		attributes[attrKey] = ParseScalar(raw)
	}

	return attributes, warnings
}

// readCSV opens a CSV, validates required header columns and returns the
// data rows. A non-nil failure result means the caller should return it
// as-is.
func readCSV(csvPath string, required []string, kind string) ([][]string, []string, *result.Result) {
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			failure := result.Fail(fmt.Sprintf("CSV file not found: %s", csvPath))
			return nil, nil, &failure
		}
		failure := result.FailErr(err)
		return nil, nil, &failure
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Ragged rows get padded/reported per row instead of failing the file.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		header = nil
	} else if err != nil {
		failure := result.FailErr(err)
		return nil, nil, &failure
	}

	headerSet := make(map[string]struct{}, len(header))
	for _, column := range header {
		headerSet[column] = struct{}{}
	}
	var missing []string
	for _, column := range required {
		if _, ok := headerSet[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		failure := result.Fail(fmt.Sprintf(
			"Missing required columns for %s import: %s", kind, strings.Join(missing, ", ")))
		return nil, nil, &failure
	}

	rows, err := reader.ReadAll()
	if err != nil {
		failure := result.FailErr(err)
		return nil, nil, &failure
	}
	return rows, header, nil
}

func writeCSV(csvPath string, columns []string, rows [][]string) error {
	if dir := filepath.Dir(csvPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(csvPath)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	writeErr := writer.Write(columns)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(row)
	}
	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}

	closeErr := file.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// namedRow zips a header with one data row. Short rows leave trailing
// columns empty; extra cells are dropped.
func namedRow(header []string, row []string) map[string]string {
	record := make(map[string]string, len(header))
	for i, column := range header {
		if i < len(row) {
			record[column] = row[i]
		} else {
			record[column] = ""
		}
	}
	return record
}

// cellValue renders an attribute value into a CSV cell.
func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64, float32, int, int64, json.Number:
		return canonical.Number(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func attributesOrEmpty(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
