package replay

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema reflects the JSON schema for the replay record contract. External
// tooling validates recorded session files against it.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Record))
	schema.Title = "Iron & Ash Replay Record"
	schema.Description = "Validates recorded session files replayed against the deterministic core"
	return schema
}

// SchemaJSON renders the schema as indented JSON with a trailing newline.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
