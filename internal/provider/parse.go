package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// ParseObject decodes raw model output that must be exactly one JSON object.
// Anything else, including fenced or trailing text, is a ParseError.
func ParseObject(provider entity.ProviderName, raw string) (map[string]any, json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, nil, entity.NewParseError(provider, raw, errors.New("empty response"))
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, nil, entity.NewParseError(provider, raw, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil, entity.NewParseError(provider, raw, fmt.Errorf("expected a JSON object, got %s", jsonType(v)))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, entity.NewParseError(provider, raw, errors.New("unexpected data after JSON object"))
	}
	return obj, json.RawMessage(text), nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
