package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed order.schema.json
var orderSchemaJSON string

var orderSchema = jsonschema.MustCompileString("order.schema.json", orderSchemaJSON)

// validatePayload checks raw JSON against schema. Malformed JSON wraps
// ErrBadRequest; a schema mismatch wraps ErrBadSchema.
func validatePayload(schema *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSchema, err)
	}
	return nil
}
