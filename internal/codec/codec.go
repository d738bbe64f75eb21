// Package codec turns application values into wire payloads and back.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecode marks a payload that could not be decoded.
var ErrDecode = errors.New("codec: malformed payload")

// Codec serializes values to a string payload and back.
//
// Encode must not retain v: the returned payload is a snapshot taken at call time.
type Codec interface {
	Name() string
	Encode(v interface{}) (string, error)
	Decode(payload string) (interface{}, error)
}

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
