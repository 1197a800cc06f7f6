package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var partyKeys = []string{
	"company_name", "address", "city", "state", "pincode",
	"country", "phone", "email", "gstin", "pan",
}

var itemKeys = []string{"hsn_code", "description", "quantity", "unit", "rate", "amount"}

var scalarKeys = []string{
	"document_type", "document_number", "date",
	"subtotal", "cgst", "sgst", "igst", "total_amount",
}

// BuildDocumentJSONSchema returns the JSON-Schema of a document record as a generic map.
// Every leaf is a string; nothing is required so partial answers still validate.
func BuildDocumentJSONSchema() map[string]any {
	props := map[string]any{}
	for _, k := range scalarKeys {
		props[k] = stringProp()
	}
	props["document_type"] = map[string]any{
		"type": "string",
		"enum": append(constants.AsStringSlice(), ""),
	}
	props["client_info"] = objectOf(partyKeys)
	props["receiver_info"] = objectOf(partyKeys)
	props["items"] = map[string]any{
		"type":  "array",
		"items": objectOf(itemKeys),
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func objectOf(keys []string) map[string]any {
	props := make(map[string]any, len(keys))
	for _, k := range keys {
		props[k] = stringProp()
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(BuildDocumentJSONSchema())
})

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

// ValidateDocumentJSON validates data against BuildDocumentJSONSchema.
func ValidateDocumentJSON(data []byte) error {
	schema, err := documentSchema()
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
