package server

import (
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pageocr/internal/common"
)

const requestSchema = `{
  "type": "object",
  "required": ["content"],
  "additionalProperties": false,
  "properties": {
    "filename": {"type": "string", "maxLength": 255},
    "content":  {"type": "string", "minLength": 1},
    "lang":     {"type": "string", "maxLength": 64, "pattern": "^[A-Za-z][A-Za-z0-9_-]*(\\+[A-Za-z][A-Za-z0-9_-]*)*$"},
    "options": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "dpi":         {"type": "integer", "minimum": 1, "maximum": 600},
        "color_mode":  {"enum": ["grayscale", "color"]},
        "concurrency": {"enum": ["parallel", "sequential"]}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func ocrRequestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("ocr_request.json", strings.NewReader(requestSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("ocr_request.json")
	})
	return compiledSchema, schemaErr
}

// validateRequestJSON checks a /ocr/json body against the request schema.
func validateRequestJSON(data []byte) error {
	schema, err := ocrRequestSchema()
	if err != nil {
		return common.WrapError(err, "compile request schema")
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.InvalidArgumentErrorf("invalid json: %v", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.InvalidArgumentErrorf("request does not match schema: %v", err)
	}
	return nil
}
