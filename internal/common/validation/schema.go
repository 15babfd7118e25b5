// Package validation wraps JSON-schema checks for inbound event payloads.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateBytes validates a raw JSON document against a Go-map schema.
func ValidateBytes(schemaMap map[string]interface{}, document []byte) error {
	if len(schemaMap) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("payload validation failed: %v", errs)
	}

	return nil
}
