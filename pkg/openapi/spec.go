// Package openapi builds and serves OpenAPI 3.0 specifications describing
// the HTTP API.
package openapi

import (
	"fmt"
	"net/http"
)

// Spec is the root OpenAPI document.
type Spec struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Servers    []Server             `json:"servers,omitempty"`
	Tags       []Tag                `json:"tags,omitempty"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components,omitempty"`
}

// Info identifies the API.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server is one reachable API base URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag groups operations in generated documentation.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PathItem holds the operations available on one path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation describes one method on one path.
type Operation struct {
	Tags        []string             `json:"tags,omitempty"`
	Summary     string               `json:"summary,omitempty"`
	OperationID string               `json:"operationId,omitempty"`
	Parameters  []Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`
}

// Parameter is a path or query parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody describes an operation's request payload.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// MediaType binds a content type to its schema.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Response describes one status code's payload.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Schema is a JSON schema fragment.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
}

// New creates a Spec with the given identity.
func New(title, description, version string) *Spec {
	return &Spec{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       title,
			Description: description,
			Version:     version,
		},
		Paths: make(map[string]*PathItem),
	}
}

// AddServer appends a server entry.
func (s *Spec) AddServer(url, description string) *Spec {
	s.Servers = append(s.Servers, Server{URL: url, Description: description})
	return s
}

// AddTag appends a tag entry.
func (s *Spec) AddTag(name, description string) *Spec {
	s.Tags = append(s.Tags, Tag{Name: name, Description: description})
	return s
}

// AddSchema registers a reusable component schema.
func (s *Spec) AddSchema(name string, schema *Schema) *Spec {
	if s.Components == nil {
		s.Components = &Components{Schemas: make(map[string]*Schema)}
	}
	s.Components.Schemas[name] = schema
	return s
}

// Path returns the PathItem for pattern, creating it on first use.
func (s *Spec) Path(pattern string) *PathItem {
	if item, ok := s.Paths[pattern]; ok {
		return item
	}
	item := &PathItem{}
	s.Paths[pattern] = item
	return item
}

// NewOperation creates an Operation under one tag.
func NewOperation(tag, summary, operationID string) *Operation {
	return &Operation{
		Tags:        []string{tag},
		Summary:     summary,
		OperationID: operationID,
		Responses:   make(map[string]*Response),
	}
}

// WithPathParam adds a required path parameter.
func (o *Operation) WithPathParam(name, description string, schema *Schema) *Operation {
	o.Parameters = append(o.Parameters, Parameter{
		Name:        name,
		In:          "path",
		Description: description,
		Required:    true,
		Schema:      schema,
	})
	return o
}

// WithQueryParam adds an optional query parameter.
func (o *Operation) WithQueryParam(name, description string, schema *Schema) *Operation {
	o.Parameters = append(o.Parameters, Parameter{
		Name:        name,
		In:          "query",
		Description: description,
		Schema:      schema,
	})
	return o
}

// WithJSONRequest sets a required application/json request body.
func (o *Operation) WithJSONRequest(description string, schema *Schema) *Operation {
	o.RequestBody = &RequestBody{
		Description: description,
		Required:    true,
		Content: map[string]MediaType{
			"application/json": {Schema: schema},
		},
	}
	return o
}

// WithJSONResponse adds an application/json response for status.
func (o *Operation) WithJSONResponse(status int, description string, schema *Schema) *Operation {
	o.Responses[fmt.Sprintf("%d", status)] = &Response{
		Description: description,
		Content: map[string]MediaType{
			"application/json": {Schema: schema},
		},
	}
	return o
}

// WithBinaryResponse adds a binary body response for status.
func (o *Operation) WithBinaryResponse(status int, description, contentType string) *Operation {
	o.Responses[fmt.Sprintf("%d", status)] = &Response{
		Description: description,
		Content: map[string]MediaType{
			contentType: {Schema: &Schema{Type: "string", Format: "binary"}},
		},
	}
	return o
}

// WithEmptyResponse adds a bodiless response for status.
func (o *Operation) WithEmptyResponse(status int, description string) *Operation {
	o.Responses[fmt.Sprintf("%d", status)] = &Response{Description: description}
	return o
}

// Convenience schema constructors.

// String returns a string schema.
func String(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// UUID returns a string schema with uuid format.
func UUID(description string) *Schema {
	return &Schema{Type: "string", Format: "uuid", Description: description}
}

// Integer returns an integer schema.
func Integer(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

// Number returns a number schema.
func Number(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}

// Boolean returns a boolean schema.
func Boolean(description string) *Schema {
	return &Schema{Type: "boolean", Description: description}
}

// Enum returns a string schema restricted to values.
func Enum(description string, values ...string) *Schema {
	return &Schema{Type: "string", Description: description, Enum: values}
}

// Object returns an object schema with the given properties.
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

// Array returns an array schema of items.
func Array(items *Schema) *Schema {
	return &Schema{Type: "array", Items: items}
}

// Ref returns a reference to a component schema.
func Ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

// StatusText is a shorthand for the standard description of an HTTP status.
func StatusText(status int) string {
	return http.StatusText(status)
}
