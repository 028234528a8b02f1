package openapi

import "github.com/getkin/kin-openapi/openapi3"

// Component schema names.
const (
	schemaError         = "ErrorResponse"
	schemaLoginRequest  = "LoginRequest"
	schemaLoginResponse = "LoginResponse"
	schemaAdmin         = "Admin"
	schemaProject       = "Project"
	schemaProjectInput  = "ProjectInput"
	schemaContact       = "Contact"
	schemaContactInput  = "ContactInput"
	schemaMessage       = "MessageResponse"
)

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func str(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func formatted(format, description string) *openapi3.SchemaRef {
	s := str(description)
	s.Value.Format = format
	return s
}

func integer(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", Description: description}}
}

func object(required []string, props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Required:   required,
		Properties: props,
	}}
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: items}}
}

// listOf wraps items in the {"resource": [...], "meta": {"count": n}} envelope.
func listOf(name string) *openapi3.SchemaRef {
	return object([]string{"resource", "meta"}, openapi3.Schemas{
		"resource": arrayOf(ref(name)),
		"meta": object([]string{"count"}, openapi3.Schemas{
			"count": integer("Number of items in resource."),
		}),
	})
}

// componentSchemas returns every reusable schema of the API.
func componentSchemas() openapi3.Schemas {
	technologies := &openapi3.SchemaRef{Value: &openapi3.Schema{
		OneOf: openapi3.SchemaRefs{
			arrayOf(str("")),
			str("Comma-separated list."),
		},
	}}

	return openapi3.Schemas{
		schemaError: object([]string{"error"}, openapi3.Schemas{
			"error": str("Fixed human-readable message."),
		}),
		schemaMessage: object([]string{"message"}, openapi3.Schemas{
			"message": str(""),
		}),
		schemaLoginRequest: object([]string{"email", "password"}, openapi3.Schemas{
			"email":    formatted("email", "Compared case-insensitively."),
			"password": formatted("password", ""),
		}),
		schemaLoginResponse: object([]string{"token", "token_type", "expires_in"}, openapi3.Schemas{
			"token":      str("HS256 JWT to send as Authorization: Bearer."),
			"token_type": str("Always \"bearer\"."),
			"expires_in": integer("Seconds until the token expires."),
		}),
		schemaAdmin: object([]string{"id", "email"}, openapi3.Schemas{
			"id":            formatted("uuid", ""),
			"email":         formatted("email", ""),
			"last_login_at": formatted("date-time", ""),
		}),
		schemaProject: object([]string{"id", "title", "description", "category", "technologies", "createdAt", "updatedAt"}, openapi3.Schemas{
			"id":            formatted("uuid", ""),
			"title":         str(""),
			"description":   str(""),
			"category":      str("Defaults to \"Full-stack\"."),
			"image":         formatted("uri", ""),
			"video":         formatted("uri", ""),
			"technologies":  arrayOf(str("")),
			"githubUrl":     formatted("uri", ""),
			"demoUrl":       formatted("uri", ""),
			"dateCompleted": formatted("date-time", ""),
			"createdAt":     formatted("date-time", ""),
			"updatedAt":     formatted("date-time", ""),
		}),
		schemaProjectInput: object(nil, openapi3.Schemas{
			"title":         str("Required on create."),
			"description":   str("Required on create."),
			"category":      str(""),
			"image":         formatted("uri", ""),
			"video":         formatted("uri", ""),
			"technologies":  technologies,
			"githubUrl":     formatted("uri", ""),
			"demoUrl":       formatted("uri", ""),
			"dateCompleted": str("YYYY-MM-DD or RFC 3339; empty clears it."),
		}),
		schemaContact: object([]string{"id", "name", "email", "subject", "message", "createdAt"}, openapi3.Schemas{
			"id":        formatted("uuid", ""),
			"name":      str(""),
			"email":     formatted("email", ""),
			"subject":   str(""),
			"message":   str(""),
			"createdAt": formatted("date-time", ""),
		}),
		schemaContactInput: object([]string{"name", "email", "subject", "message"}, openapi3.Schemas{
			"name":    str(""),
			"email":   formatted("email", ""),
			"subject": str(""),
			"message": str(""),
		}),
	}
}
