package codec

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var (
	json       = jsoniter.ConfigCompatibleWithStandardLibrary
	jsonNumber = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		UseNumber:              true,
	}.Froze()
)

// JSON is the default text codec. Decoded values use the JSON-native Go
// types: objects become map[string]interface{}, arrays []interface{} and
// numbers float64, so Emit(t, 1) arrives as float64(1). Set UseNumber to get
// numbers as encoding/json.Number and keep integer precision.
type JSON struct {
	UseNumber bool
}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Encode marshals v into a JSON document.
func (c JSON) Encode(v interface{}) (string, error) {
	s, err := c.api().MarshalToString(v)
	if err != nil {
		return "", fmt.Errorf("codec: encode json: %w", err)
	}
	return s, nil
}

// Decode parses payload into JSON-native Go values.
func (c JSON) Decode(payload string) (interface{}, error) {
	var v interface{}
	if err := c.api().UnmarshalFromString(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

func (c JSON) api() jsoniter.API {
	if c.UseNumber {
		return jsonNumber
	}
	return json
}
