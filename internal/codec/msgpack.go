package codec

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a compact binary codec. Payloads are raw bytes carried in a string.
type Msgpack struct{}

// Name returns "msgpack".
func (Msgpack) Name() string { return "msgpack" }

// Encode marshals v with the msgpack/v5 default encoder.
func (Msgpack) Encode(v interface{}) (string, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: encode msgpack: %w", err)
	}
	return string(b), nil
}

// Decode uses loose interface decoding so integers come back as int64/uint64
// and floats as float64 regardless of their wire width.
func (Msgpack) Decode(payload string) (interface{}, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	r := strings.NewReader(payload)
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, r.Len())
	}
	return v, nil
}
