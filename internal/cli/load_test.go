package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBOMDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadBOMDefinition(t *testing.T) {
	dir := writeBOMDir(t, map[string]string{
		"assembly.cue": `
package bom

part: "ASSY-100": {
	name: "Main assembly"
	attributes: {
		unit_weight:     12.5
		maturity_factor: 1.1
	}
}
part: "BOLT-M6": name: "Hex bolt"

relationship: "rel_assy_bolt": {
	parent: "ASSY-100"
	child:  "BOLT-M6"
	qty:    8
}
`,
	})

	def, err := LoadBOMDefinition(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, def.FileCount)

	require.Len(t, def.Parts, 2)
	// Sorted by part number.
	assert.Equal(t, "ASSY-100", def.Parts[0].PartNumber)
	assert.Equal(t, "Main assembly", def.Parts[0].Name)
	assert.Equal(t, map[string]any{
		"unit_weight":     json.Number("12.5"),
		"maturity_factor": json.Number("1.1"),
	}, def.Parts[0].Attributes)
	assert.Equal(t, "BOLT-M6", def.Parts[1].PartNumber)
	assert.Nil(t, def.Parts[1].Attributes)

	require.Len(t, def.Relationships, 1)
	rel := def.Relationships[0]
	assert.Equal(t, "rel_assy_bolt", rel.RelID)
	assert.Equal(t, "ASSY-100", rel.Parent)
	assert.Equal(t, "BOLT-M6", rel.Child)
	assert.Equal(t, 8.0, rel.Qty)
}

func TestLoadBOMDefinition_UnifiesAcrossFiles(t *testing.T) {
	dir := writeBOMDir(t, map[string]string{
		"parts.cue": `
package bom

part: "A": name: "Assembly"
part: "B": name: "Bolt"
`,
		"structure.cue": `
package bom

relationship: "rel_2": {parent: "A", child: "B", qty: 2}
relationship: "rel_1": {parent: "A", child: "B", qty: 1}
`,
	})

	def, err := LoadBOMDefinition(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, def.FileCount)
	require.Len(t, def.Parts, 2)
	require.Len(t, def.Relationships, 2)

	// Sorted by rel_id regardless of file order.
	assert.Equal(t, "rel_1", def.Relationships[0].RelID)
	assert.Equal(t, "rel_2", def.Relationships[1].RelID)
}

func TestLoadBOMDefinition_DirectoryErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadBOMDefinition(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BOM directory not found")
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "bom.cue")
		require.NoError(t, os.WriteFile(file, []byte(`part: "A": name: "A"`), 0o644))
		_, err := LoadBOMDefinition(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("no CUE files", func(t *testing.T) {
		_, err := LoadBOMDefinition(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no CUE files found")
	})

	t.Run("no parts or relationships", func(t *testing.T) {
		dir := writeBOMDir(t, map[string]string{"other.cue": "package bom\n\nmeta: owner: \"propulsion\"\n"})
		_, err := LoadBOMDefinition(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no parts or relationships found")
	})
}

func TestLoadBOMDefinition_MissingRequiredFields(t *testing.T) {
	dir := writeBOMDir(t, map[string]string{
		"bad.cue": "package bom\n\nrelationship: \"rel_x\": {parent: \"A\", child: \"B\"}\n",
	})
	_, err := LoadBOMDefinition(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `relationship "rel_x": qty`)
}
