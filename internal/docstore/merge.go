package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonNull = []byte("null")

// EncodeFields marshals every value of a partial update.
func EncodeFields(fields map[string]any) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", name, err)
		}
		encoded[name] = raw
	}
	return encoded, nil
}

// MergeFields applies a partial update to a JSON object. Null values delete
// the field. An empty current value starts from an empty object.
func MergeFields(current json.RawMessage, fields map[string]json.RawMessage) (json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
	}

	for name, value := range fields {
		if IsNull(value) {
			delete(doc, name)
			continue
		}
		doc[name] = value
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return merged, nil
}

// IsNull reports whether raw is empty or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
