package llm

// Schema is a provider-neutral description of the JSON shape a structured
// generation call must produce. It maps onto Gemini's response_schema and is
// inlined into the instruction for providers that only support a generic
// JSON mode.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Object builds an object schema from its properties and required field names.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// Array builds an array schema over the given element schema.
func Array(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String builds a string schema, optionally restricted to an enum.
func String(enum ...string) *Schema {
	return &Schema{Type: TypeString, Enum: enum}
}

// Integer builds an integer schema.
func Integer() *Schema { return &Schema{Type: TypeInteger} }

// Number builds a number schema.
func Number() *Schema { return &Schema{Type: TypeNumber} }
