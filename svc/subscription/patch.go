package subscription

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Patch is a partial update to user metadata, keyed by JSON field name.
// A nil value is an intentional delete of that field. Keys that should not
// change are simply absent - builders never write a nil over a valid value
// unintentionally.
type Patch map[string]any

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p) == 0
}

// Clone returns a shallow copy of the patch.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// ApplyTo merges the patch into metadata and returns the result. This is the
// one implementation of patch semantics: absent keys keep their value, nil
// values delete. The JSON round-trip keeps it in lockstep with the identity
// provider, which merges patches against the same JSON representation.
func (p Patch) ApplyTo(m Metadata) (Metadata, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshal metadata: %w", err)
	}

	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	for k, v := range p {
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshal merged metadata: %w", err)
	}

	var out Metadata
	if err := json.Unmarshal(merged, &out); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal merged metadata: %w", err)
	}
	return out, nil
}
