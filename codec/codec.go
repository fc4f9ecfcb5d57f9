// Package codec provides the injectable encoders the document layer uses to
// serialize clean data, plus the RFC3339 time handling shared by datetime
// field conversion.
package codec

import (
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Encoder turns a value into its serialized byte form.
type Encoder interface {
	Marshal(v any) ([]byte, error)
}

// Decoder parses a serialized byte form into a value.
type Decoder interface {
	Unmarshal(data []byte, v any) error
}

// JSON is the default document encoding, backed by goccy/go-json.
var JSON JSONCodec

// JSONCodec implements Encoder and Decoder over goccy/go-json.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// MarshalIndent renders v with two-space indentation.
func (JSONCodec) MarshalIndent(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// YAML encodes and decodes via gopkg.in/yaml.v3; manifest files are read
// with it.
var YAML YAMLCodec

// YAMLCodec implements Encoder and Decoder over yaml.v3.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }

func (YAMLCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }
