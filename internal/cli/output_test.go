package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomgraph/bomgraph/internal/result"
)

func TestEmit_JSON(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "json", Writer: &buf}

	res := result.Ok(map[string]any{"count": 2}, "heads up")
	require.NoError(t, formatter.Emit(res))

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, true, envelope["ok"])
	assert.Equal(t, map[string]any{"count": 2.0}, envelope["data"])
	assert.Equal(t, []any{"heads up"}, envelope["warnings"])
	assert.Equal(t, []any{}, envelope["errors"])
}

func TestEmit_JSONFailureStillRendersEnvelope(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "json", Writer: &buf}

	err := formatter.Emit(result.Fail("Part 'B' not found"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Part 'B' not found", err.Error())

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, false, envelope["ok"])
	assert.Equal(t, []any{"Part 'B' not found"}, envelope["errors"])
}

func TestEmit_Text(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "text", Writer: &buf}

	res := result.Ok(map[string]any{"total": 18.5}, "Part 'D' is missing attribute 'weight_kg'")
	require.NoError(t, formatter.Emit(res))

	out := buf.String()
	assert.Contains(t, out, "warning: Part 'D' is missing attribute 'weight_kg'\n")
	assert.Contains(t, out, `"total": 18.5`)
}

func TestEmit_TextFailure(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "text", Writer: &buf}

	err := formatter.Emit(result.Fail("first problem", "second problem"))
	require.Error(t, err)
	assert.Equal(t, "first problem", err.Error())

	out := buf.String()
	assert.Contains(t, out, "error: first problem\n")
	assert.Contains(t, out, "error: second problem\n")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "writing export", cause)
	assert.Equal(t, "writing export: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewExitError(ExitFailure, "cycle detected")
	assert.Equal(t, "cycle detected", bare.Error())
}

func TestVerboseLog(t *testing.T) {
	var out, errOut bytes.Buffer

	quiet := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut}
	quiet.VerboseLog("opened %s", "bomgraph.db")
	assert.Empty(t, errOut.String())

	verbose := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}
	verbose.VerboseLog("opened %s", "bomgraph.db")
	assert.Equal(t, "opened bomgraph.db\n", errOut.String())
	assert.Empty(t, out.String())

	// Without ErrWriter diagnostics land on Writer.
	fallback := &OutputFormatter{Format: "text", Writer: &out, Verbose: true}
	fallback.VerboseLog("done")
	assert.Equal(t, "done\n", out.String())
}
