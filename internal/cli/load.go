package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/spf13/cobra"

	"github.com/bomgraph/bomgraph/internal/catalog"
	"github.com/bomgraph/bomgraph/internal/engine"
	"github.com/bomgraph/bomgraph/internal/result"
)

// BOMDefinition is a declarative BOM loaded from CUE files: parts keyed
// by part number under "part", relationships keyed by rel_id under
// "relationship".
type BOMDefinition struct {
	Parts         []PartDefinition
	Relationships []RelationshipDefinition
	FileCount     int
}

// PartDefinition is one entry of the "part" struct.
type PartDefinition struct {
	PartNumber string
	Name       string
	Attributes map[string]any
}

// RelationshipDefinition is one entry of the "relationship" struct.
type RelationshipDefinition struct {
	RelID      string
	Parent     string
	Child      string
	Qty        float64
	Attributes map[string]any
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var allowDangling bool
	cmd := &cobra.Command{
		Use:   "load <bom-dir>",
		Short: "Load a declarative BOM from CUE files",
		Long: `Load parts and relationships from a directory of CUE files and apply
them to the database. Parts live under the "part" field keyed by part
number; relationships under the "relationship" field keyed by rel_id:

  part: "ASSY-100": {
      name: "Main assembly"
      attributes: unit_weight: 12.5
  }
  relationship: "rel_assy_bolt": {
      parent: "ASSY-100"
      child:  "BOLT-M6"
      qty:    8
  }

Parts are applied before relationships so endpoints resolve. Entries that
fail validation are reported and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)

			def, err := LoadBOMDefinition(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "loading BOM definition", err)
			}
			formatter.VerboseLog("Found %d CUE file(s) in %s", def.FileCount, args[0])

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			return formatter.Emit(applyBOMDefinition(cmd, a, def, allowDangling))
		},
	}
	cmd.Flags().BoolVar(&allowDangling, "allow-dangling", false, "allow relationship endpoints missing from the catalog")
	return cmd
}

// LoadBOMDefinition loads and decodes the CUE files in a directory.
func LoadBOMDefinition(dir string) (*BOMDefinition, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("BOM directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("accessing BOM directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning directory: %w", err)
	}
	if len(cueFiles) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	def := &BOMDefinition{FileCount: len(cueFiles)}

	partsVal := value.LookupPath(cue.ParsePath("part"))
	if partsVal.Exists() {
		iter, err := partsVal.Fields()
		if err != nil {
			return nil, fmt.Errorf("iterating parts: %w", err)
		}
		for iter.Next() {
			part, err := decodePartDefinition(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			def.Parts = append(def.Parts, part)
		}
	}

	relsVal := value.LookupPath(cue.ParsePath("relationship"))
	if relsVal.Exists() {
		iter, err := relsVal.Fields()
		if err != nil {
			return nil, fmt.Errorf("iterating relationships: %w", err)
		}
		for iter.Next() {
			rel, err := decodeRelationshipDefinition(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			def.Relationships = append(def.Relationships, rel)
		}
	}

	if len(def.Parts) == 0 && len(def.Relationships) == 0 {
		return nil, fmt.Errorf("no parts or relationships found in %s", dir)
	}

	// Deterministic apply order regardless of CUE evaluation order.
	sort.Slice(def.Parts, func(i, j int) bool {
		return def.Parts[i].PartNumber < def.Parts[j].PartNumber
	})
	sort.Slice(def.Relationships, func(i, j int) bool {
		return def.Relationships[i].RelID < def.Relationships[j].RelID
	})
	return def, nil
}

func decodePartDefinition(partNumber string, value cue.Value) (PartDefinition, error) {
	name, err := value.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return PartDefinition{}, fmt.Errorf("part %q: name: %w", partNumber, err)
	}
	attributes, err := decodeAttributes(value.LookupPath(cue.ParsePath("attributes")))
	if err != nil {
		return PartDefinition{}, fmt.Errorf("part %q: attributes: %w", partNumber, err)
	}
	return PartDefinition{PartNumber: partNumber, Name: name, Attributes: attributes}, nil
}

func decodeRelationshipDefinition(relID string, value cue.Value) (RelationshipDefinition, error) {
	parent, err := value.LookupPath(cue.ParsePath("parent")).String()
	if err != nil {
		return RelationshipDefinition{}, fmt.Errorf("relationship %q: parent: %w", relID, err)
	}
	child, err := value.LookupPath(cue.ParsePath("child")).String()
	if err != nil {
		return RelationshipDefinition{}, fmt.Errorf("relationship %q: child: %w", relID, err)
	}
	qty, err := value.LookupPath(cue.ParsePath("qty")).Float64()
	if err != nil {
		return RelationshipDefinition{}, fmt.Errorf("relationship %q: qty: %w", relID, err)
	}
	attributes, err := decodeAttributes(value.LookupPath(cue.ParsePath("attributes")))
	if err != nil {
		return RelationshipDefinition{}, fmt.Errorf("relationship %q: attributes: %w", relID, err)
	}
	return RelationshipDefinition{
		RelID:      relID,
		Parent:     parent,
		Child:      child,
		Qty:        qty,
		Attributes: attributes,
	}, nil
}

// decodeAttributes round-trips a CUE struct through JSON so numbers land
// as json.Number, matching every other attribute ingestion path.
func decodeAttributes(value cue.Value) (map[string]any, error) {
	if !value.Exists() {
		return nil, nil
	}
	encoded, err := value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(strings.NewReader(string(encoded)))
	decoder.UseNumber()
	var attributes map[string]any
	if err := decoder.Decode(&attributes); err != nil {
		return nil, err
	}
	return attributes, nil
}

// applyBOMDefinition applies a decoded definition through the catalog and
// structure services: parts first, then relationships.
func applyBOMDefinition(cmd *cobra.Command, a *app, def *BOMDefinition, allowDangling bool) result.Result {
	partsCreated, partsUpdated := 0, 0
	relsCreated, relsUpdated := 0, 0
	var entryErrors []string
	var warnings []string

	for _, part := range def.Parts {
		res := a.catalog.AddOrUpdatePart(cmd.Context(), catalog.PartInput{
			PartNumber:      part.PartNumber,
			Name:            part.Name,
			Attributes:      part.Attributes,
			MergeAttributes: true,
		})
		if !res.OK {
			entryErrors = append(entryErrors,
				fmt.Sprintf("part %q: %s", part.PartNumber, strings.Join(res.Errors, "; ")))
			continue
		}
		if res.Data["created"].(bool) {
			partsCreated++
		} else {
			partsUpdated++
		}
	}

	for _, rel := range def.Relationships {
		res := a.structure.AddOrUpdateRelationship(cmd.Context(), engine.RelationshipInput{
			ParentPartNumber: rel.Parent,
			ChildPartNumber:  rel.Child,
			Qty:              rel.Qty,
			RelID:            rel.RelID,
			Attributes:       rel.Attributes,
			AllowDangling:    allowDangling,
			MergeAttributes:  true,
		})
		if !res.OK {
			entryErrors = append(entryErrors,
				fmt.Sprintf("relationship %q: %s", rel.RelID, strings.Join(res.Errors, "; ")))
			continue
		}
		if res.Data["created"].(bool) {
			relsCreated++
		} else {
			relsUpdated++
		}
		for _, warning := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("relationship %q: %s", rel.RelID, warning))
		}
	}

	data := map[string]any{
		"files":                 def.FileCount,
		"parts_created":         partsCreated,
		"parts_updated":         partsUpdated,
		"relationships_created": relsCreated,
		"relationships_updated": relsUpdated,
		"failed_entries":        len(entryErrors),
		"entry_errors":          entryErrors,
	}
	if entryErrors == nil {
		data["entry_errors"] = []string{}
	}
	return result.Ok(data, warnings...)
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
