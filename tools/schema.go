package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ReflectSchema derives a JSON schema document from a tool's input struct.
// The top-level struct is inlined and definitions are expanded so the
// result is a single self-contained object schema, which is what both the
// providers and the validator expect.
func ReflectSchema(v interface{}) map[string]interface{} {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	delete(doc, "$schema")
	delete(doc, "$id")
	return doc
}
