package remote

import (
	"bytes"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const collectionSchemaURL = "https://leadflow.local/schemas/collection.json"

const collectionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

type payloadValidator struct {
	schema *jsonschema.Schema
}

func newPayloadValidator() (*payloadValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(collectionSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(collectionSchemaURL, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(collectionSchemaURL)
	if err != nil {
		return nil, err
	}
	return &payloadValidator{schema: sch}, nil
}

func (v *payloadValidator) validate(payload []byte) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return errors.New("empty body")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return v.schema.Validate(inst)
}
