package transport

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// envelopeDocument mirrors Envelope with the typed appointment payload so the
// published schema documents it.
type envelopeDocument struct {
	Action  string       `json:"action" jsonschema:"required,description=Message kind: appointment_created availability_checked error audio or any other action"`
	Message string       `json:"message,omitempty" jsonschema:"description=Human readable text from the service"`
	Data    *Appointment `json:"data,omitempty" jsonschema:"description=Appointment details for appointment_created"`
	Audio   string       `json:"audio,omitempty" jsonschema:"contentEncoding=base64,description=Self-contained audio response (wav mp3 or linear16)"`
}

// EnvelopeSchema returns the JSON schema of inbound text frames.
func EnvelopeSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&envelopeDocument{})
	schema.Title = "Voice service envelope"
	return schema
}

// EnvelopeSchemaJSON is EnvelopeSchema rendered as indented JSON.
func EnvelopeSchemaJSON() ([]byte, error) {
	return json.MarshalIndent(EnvelopeSchema(), "", "  ")
}
