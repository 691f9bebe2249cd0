// Package repository handles data access for vacancies, profiles, and the
// search audit log on PostgreSQL with pgvector.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// ParseVector converts an embedding column value into []float32. The driver
// hands back different representations depending on whether pgvector types
// were registered on the connection: the native pgvector.Vector, a plain
// float slice, or the textual bracketed literal. All are accepted; anything
// else fails loudly rather than silently producing garbage distances.
// A NULL value parses to nil.
func ParseVector(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case pgvector.Vector:
		return v.Slice(), nil
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}

		return out, nil
	case string:
		// pgvector's text format is a JSON-compatible bracketed list.
		var out []float32
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("parse vector literal: %w", err)
		}

		return out, nil
	case []byte:
		var out []float32
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("parse vector literal: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("unsupported vector representation %T", raw)
	}
}
