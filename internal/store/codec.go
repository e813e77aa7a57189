package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode turns a tagged struct (or map) into document fields. Integral numbers
// come back as int64 so that stores with typed integers keep them.
func Encode(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}

// Decode fills out from the document fields, with the store-assigned id
// written to the "id" key.
func Decode(document Document, out any) error {
	fields := make(map[string]any, len(document.Fields)+1)
	for key, value := range document.Fields {
		fields[key] = value
	}
	fields["id"] = document.ID

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decoding document %s: %w", document.ID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding document %s: %w", document.ID, err)
	}
	return nil
}

func decodeFields(raw []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decoding fields: document is not an object")
	}
	for key, value := range fields {
		fields[key] = normalizeNumbers(value)
	}
	return fields, nil
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer
		}
		float, _ := typed.Float64()
		return float
	case map[string]any:
		for key, nested := range typed {
			typed[key] = normalizeNumbers(nested)
		}
		return typed
	case []any:
		for index, nested := range typed {
			typed[index] = normalizeNumbers(nested)
		}
		return typed
	default:
		return value
	}
}
