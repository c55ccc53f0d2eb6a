package rerank

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const resultSchema = `{
  "type": "object",
  "properties": {
    "accepted": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "score": {"type": "number"},
          "reasons": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["id", "score"]
      }
    },
    "rejected": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "reasons": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["id", "reasons"]
      }
    }
  },
  "required": ["accepted", "rejected"]
}`

var compiledSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchema))
	if err != nil {
		panic(fmt.Sprintf("rerank: result schema does not compile: %v", err))
	}
	compiledSchema = s
}

// validateDocument checks raw model output against the result schema
func validateDocument(doc string) error {
	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return &ErrInvalidResponse{Reason: fmt.Sprintf("not JSON: %v", err)}
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &ErrInvalidResponse{Reason: strings.Join(errs, "; ")}
	}
	return nil
}
