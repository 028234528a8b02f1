package openapi

import (
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

// Version is the API version reported in the document.
const Version = "1.0.0"

// Generate returns the OpenAPI 3.1 document of the portfolio API. baseURL
// may be empty when the server address is not known.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Portfolio API",
			Description: "Public project showcase, contact form and the single-administrator back office.",
			Version:     Version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	addAuthPaths(doc)
	addProjectPaths(doc)
	addContactPaths(doc)

	return doc
}

func addAuthPaths(doc *openapi3.T) {
	login := &openapi3.Operation{
		Tags:        []string{"admin"},
		Summary:     "Log in as the administrator",
		Description: "Two consecutive failures lock the account for fifteen minutes and send one security alert. Unknown emails and wrong passwords get the same answer.",
		OperationID: "admin_login",
		RequestBody: jsonBody(schemaLoginRequest),
		Responses:   newResponses(http.StatusOK, "Token issued", ref(schemaLoginResponse), http.StatusBadRequest, http.StatusUnauthorized, http.StatusLocked),
	}
	retryAfter := &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
		Description: "Seconds until the lock expires.",
		Schema:      integer(""),
	}}}
	login.Responses.Value(strconv.Itoa(http.StatusLocked)).Value.Headers = openapi3.Headers{"Retry-After": retryAfter}
	doc.Paths.Set("/api/v1/admin/login", &openapi3.PathItem{Post: login})

	doc.Paths.Set("/api/v1/admin/me", &openapi3.PathItem{
		Get: secured(&openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Return the authenticated administrator",
			OperationID: "admin_me",
			Responses:   newResponses(http.StatusOK, "Administrator", ref(schemaAdmin), http.StatusUnauthorized),
		}),
	})
}

func addProjectPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/projects", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"projects"},
			Summary:     "List projects, newest first",
			OperationID: "list_projects",
			Responses:   newResponses(http.StatusOK, "Projects", listOf(schemaProject)),
		},
	})
	doc.Paths.Set("/api/v1/projects/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParameter()},
		Get: &openapi3.Operation{
			Tags:        []string{"projects"},
			Summary:     "Get one project",
			OperationID: "get_project",
			Responses:   newResponses(http.StatusOK, "Project", ref(schemaProject), http.StatusNotFound),
		},
	})

	doc.Paths.Set("/api/v1/admin/data/projects", &openapi3.PathItem{
		Post: secured(&openapi3.Operation{
			Tags:        []string{"projects"},
			Summary:     "Create a project",
			OperationID: "create_project",
			RequestBody: jsonBody(schemaProjectInput),
			Responses:   newResponses(http.StatusCreated, "Created project", ref(schemaProject), http.StatusBadRequest, http.StatusUnauthorized),
		}),
	})
	doc.Paths.Set("/api/v1/admin/data/projects/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParameter()},
		Put: secured(&openapi3.Operation{
			Tags:        []string{"projects"},
			Summary:     "Update a project",
			Description: "Fields left out of the body keep their current value.",
			OperationID: "update_project",
			RequestBody: jsonBody(schemaProjectInput),
			Responses:   newResponses(http.StatusOK, "Updated project", ref(schemaProject), http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound),
		}),
		Delete: secured(&openapi3.Operation{
			Tags:        []string{"projects"},
			Summary:     "Delete a project",
			OperationID: "delete_project",
			Responses:   newResponses(http.StatusOK, "Deleted", ref(schemaMessage), http.StatusUnauthorized, http.StatusNotFound),
		}),
	})
}

func addContactPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/contacts", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"contacts"},
			Summary:     "Submit the contact form",
			OperationID: "create_contact",
			RequestBody: jsonBody(schemaContactInput),
			Responses:   newResponses(http.StatusCreated, "Stored submission", ref(schemaContact), http.StatusBadRequest),
		},
	})
	doc.Paths.Set("/api/v1/admin/data/contacts", &openapi3.PathItem{
		Get: secured(&openapi3.Operation{
			Tags:        []string{"contacts"},
			Summary:     "List contact submissions, newest first",
			OperationID: "list_contacts",
			Responses:   newResponses(http.StatusOK, "Submissions", listOf(schemaContact), http.StatusUnauthorized),
		}),
	})
}

func secured(op *openapi3.Operation) *openapi3.Operation {
	op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	return op
}

func jsonBody(schema string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(ref(schema)),
	}
}

func idParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()),
	}
}

// newResponses builds the success response plus one ErrorResponse entry per
// listed status. Every operation may also answer 500.
func newResponses(status int, description string, schema *openapi3.SchemaRef, errorStatuses ...int) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	for _, code := range append(errorStatuses, http.StatusInternalServerError) {
		desc := http.StatusText(code)
		responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(ref(schemaError)),
			},
		})
	}

	return responses
}
