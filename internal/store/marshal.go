package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bomgraph/bomgraph/internal/canonical"
	"github.com/bomgraph/bomgraph/internal/model"
)

// marshalAttributes serializes an attribute map to JSON text for storage.
// encoding/json already sorts map keys, which keeps stored rows stable
// across rewrites of the same logical record.
func marshalAttributes(attrs map[string]any) (string, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttributes decodes stored attribute JSON. Numbers decode as
// json.Number so the original literal spelling survives the round trip;
// the canonicalizer is what decides whether 2 and 2.0 are the same.
func unmarshalAttributes(text string) (map[string]any, error) {
	if text == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, nil
}

// marshalParts and marshalRelationships serialize snapshot payload columns.
func marshalParts(parts []model.Part) (string, error) {
	if parts == nil {
		parts = []model.Part{}
	}
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot parts: %w", err)
	}
	return string(data), nil
}

func marshalRelationships(rels []model.Relationship) (string, error) {
	if rels == nil {
		rels = []model.Relationship{}
	}
	data, err := json.Marshal(rels)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot relationships: %w", err)
	}
	return string(data), nil
}

func unmarshalParts(text string) ([]model.Part, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var parts []model.Part
	if err := dec.Decode(&parts); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot parts: %w", err)
	}
	for i := range parts {
		if parts[i].Attributes == nil {
			parts[i].Attributes = map[string]any{}
		}
	}
	return parts, nil
}

func unmarshalRelationships(text string) ([]model.Relationship, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var rels []model.Relationship
	if err := dec.Decode(&rels); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot relationships: %w", err)
	}
	for i := range rels {
		if rels[i].Attributes == nil {
			rels[i].Attributes = map[string]any{}
		}
	}
	return rels, nil
}

// sortRelationships orders edges by the shared deterministic key:
// (parent, child, canonical qty, rel_id).
func sortRelationships(rels []model.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		return canonical.RelationshipSortKey(rels[i]) < canonical.RelationshipSortKey(rels[j])
	})
}
