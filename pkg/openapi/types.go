package openapi

// The types below cover the subset of OpenAPI 3.1 the API document uses.

type (
	Info struct {
		Title       string `json:"title"`
		Version     string `json:"version"`
		Description string `json:"description,omitempty"`
	}

	Server struct {
		URL         string `json:"url"`
		Description string `json:"description,omitempty"`
	}

	// PathItem holds the operations of one path, one per method.
	PathItem struct {
		Get    *Operation `json:"get,omitempty"`
		Post   *Operation `json:"post,omitempty"`
		Put    *Operation `json:"put,omitempty"`
		Delete *Operation `json:"delete,omitempty"`
	}

	// Operation is keyed by status code in Responses.
	Operation struct {
		Summary     string            `json:"summary,omitempty"`
		Description string            `json:"description,omitempty"`
		Tags        []string          `json:"tags,omitempty"`
		Parameters  []*Parameter      `json:"parameters,omitempty"`
		RequestBody *RequestBody      `json:"requestBody,omitempty"`
		Responses   map[int]*Response `json:"responses"`
	}

	Parameter struct {
		Name        string  `json:"name"`
		In          string  `json:"in"`
		Required    bool    `json:"required,omitempty"`
		Description string  `json:"description,omitempty"`
		Schema      *Schema `json:"schema"`
	}

	RequestBody struct {
		Description string                `json:"description,omitempty"`
		Required    bool                  `json:"required,omitempty"`
		Content     map[string]*MediaType `json:"content"`
	}

	// Response is either inline or a Ref to a component response.
	Response struct {
		Description string                `json:"description,omitempty"`
		Content     map[string]*MediaType `json:"content,omitempty"`
		Ref         string                `json:"$ref,omitempty"`
	}

	MediaType struct {
		Schema *Schema `json:"schema,omitempty"`
	}

	Schema struct {
		Type        string             `json:"type,omitempty"`
		Format      string             `json:"format,omitempty"`
		Description string             `json:"description,omitempty"`
		Properties  map[string]*Schema `json:"properties,omitempty"`
		Required    []string           `json:"required,omitempty"`
		Items       *Schema            `json:"items,omitempty"`
		Ref         string             `json:"$ref,omitempty"`
		Example     any                `json:"example,omitempty"`
		Enum        []any              `json:"enum,omitempty"`
		Pattern     string             `json:"pattern,omitempty"`
	}

	Components struct {
		Schemas   map[string]*Schema   `json:"schemas,omitempty"`
		Responses map[string]*Response `json:"responses,omitempty"`
	}
)

const jsonMedia = "application/json"

func jsonContent(s *Schema) map[string]*MediaType {
	return map[string]*MediaType{jsonMedia: {Schema: s}}
}

// SchemaRef points at a component schema.
func SchemaRef(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

// ResponseRef points at a component response.
func ResponseRef(name string) *Response {
	return &Response{Ref: "#/components/responses/" + name}
}

// RequestBodyJSON is a JSON body of the named component schema.
func RequestBodyJSON(schemaName string, required bool) *RequestBody {
	return &RequestBody{Required: required, Content: jsonContent(SchemaRef(schemaName))}
}

// ResponseJSON is a JSON response of the named component schema.
func ResponseJSON(description, schemaName string) *Response {
	return &Response{Description: description, Content: jsonContent(SchemaRef(schemaName))}
}

// PathParam creates a required string path parameter. format may be empty
// or a string format such as "uuid".
func PathParam(name, description, format string) *Parameter {
	return &Parameter{
		Name:        name,
		In:          "path",
		Required:    true,
		Description: description,
		Schema:      &Schema{Type: "string", Format: format},
	}
}

// QueryParam creates a query parameter of JSON type typ.
func QueryParam(name, typ, description string, required bool) *Parameter {
	return &Parameter{
		Name:        name,
		In:          "query",
		Required:    required,
		Description: description,
		Schema:      &Schema{Type: typ},
	}
}
