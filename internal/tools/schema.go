package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema produces a tool parameter JSON Schema document from a Go
// struct, so concrete tool implementations (out of scope per spec.md) can
// declare their parameters as typed structs instead of hand-written JSON.
// Nothing in this module, tests included, calls it.
func GenerateSchema[T any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	var zero T
	schema := reflector.Reflect(zero)
	b, err := json.Marshal(schema)
	if err != nil {
		// Reflection of a plain struct cannot fail to marshal; a panic
		// here indicates a programming error in a tool's parameter type.
		panic(err)
	}
	return b
}
