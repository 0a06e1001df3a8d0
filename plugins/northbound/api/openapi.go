package api

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
)

// bootInfoDoc mirrors the boot document the HAL serves, for schema
// generation only.
type bootInfoDoc struct {
	BootID   string `json:"boot_id"`
	WarmBoot bool   `json:"warm_boot"`
	Platform string `json:"platform"`
	Backend  string `json:"backend"`
}

func openAPISpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "osvSwitch API",
			Description: "Northbound REST API for osvSwitch - Open Source Virtual Switch agent",
			Version:     "1.0.0",
		},
		Paths: &openapi3.Paths{},
		Tags: openapi3.Tags{
			{Name: "Ports", Description: "Port status, counters and configuration"},
			{Name: "Mirrors", Description: "Mirror session endpoints"},
			{Name: "System", Description: "System level endpoints"},
		},
	}

	idParam := openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     "id",
				In:       "path",
				Required: true,
				Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
			},
		},
	}

	spec.Paths.Set("/api", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"System"},
			Summary:     "List all available API paths",
			OperationID: "listPaths",
			Responses:   jsonResponses(200, "List of endpoints", reflect.TypeOf(PathsResponse{})),
		},
	})

	spec.Paths.Set("/api/ports", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Get live status of all ports",
			OperationID: "listPorts",
			Responses:   jsonResponses(200, "Port status list", reflect.TypeOf([]southbound.PortStatus{})),
		},
	})

	spec.Paths.Set("/api/ports/{id}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Get live status of one port",
			OperationID: "getPort",
			Parameters:  idParam,
			Responses: withError(404,
				jsonResponses(200, "Port status", reflect.TypeOf(southbound.PortStatus{}))),
		},
	})

	spec.Paths.Set("/api/ports/{id}/counters", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Get the latest counter snapshot of one port",
			OperationID: "getPortCounters",
			Parameters:  idParam,
			Responses: withError(404,
				jsonResponses(200, "Port counters", reflect.TypeOf(southbound.PortCounters{}))),
		},
	})

	spec.Paths.Set("/api/counters", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Get the latest counter snapshots of all ports",
			OperationID: "listCounters",
			Responses:   jsonResponses(200, "Counter list", reflect.TypeOf([]southbound.PortCounters{})),
		},
	})

	spec.Paths.Set("/api/mirrors", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Mirrors"},
			Summary:     "List registered mirror sessions",
			OperationID: "listMirrors",
			Responses:   jsonResponses(200, "Mirror session list", reflect.TypeOf([]MirrorInfo{})),
		},
	})

	spec.Paths.Set("/api/system/boot", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"System"},
			Summary:     "Get boot identity and warm boot state",
			OperationID: "getBootInfo",
			Responses:   jsonResponses(200, "Boot information", reflect.TypeOf(bootInfoDoc{})),
		},
	})

	spec.Paths.Set("/api/config/ports", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Get the applied desired port table",
			OperationID: "getPortConfig",
			Responses:   jsonResponses(200, "Applied port table", reflect.TypeOf(PortsRequest{})),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"Ports"},
			Summary:     "Replace the desired port table",
			OperationID: "setPortConfig",
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchemaRef(schemaFromType(reflect.TypeOf(PortsRequest{}))),
				},
			},
			Responses: withError(500,
				jsonResponses(200, "Reconciled delta", reflect.TypeOf(DeltaResponse{}))),
		},
	})

	return spec
}

func jsonResponses(status int, desc string, t reflect.Type) *openapi3.Responses {
	return openapi3.NewResponses(
		openapi3.WithStatus(status, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: ptr(desc),
				Content:     openapi3.NewContentWithJSONSchemaRef(schemaFromType(t)),
			},
		}),
	)
}

func withError(status int, responses *openapi3.Responses) *openapi3.Responses {
	responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: ptr("Error"),
			Content: openapi3.NewContentWithJSONSchemaRef(
				schemaFromType(reflect.TypeOf(ErrorResponse{})),
			),
		},
	})
	return responses
}

func schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == reflect.TypeOf(time.Time{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
	}

	if t == reflect.TypeOf(time.Duration(0)) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Description: "Duration in nanoseconds"}}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}

	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: schemaFromType(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: schemaFromType(t.Elem())},
			},
		}

	case reflect.Struct:
		return structToSchema(t)

	case reflect.Interface:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func structToSchema(t reflect.Type) *openapi3.SchemaRef {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := openapi3.Schemas{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		propSchema := schemaFromType(field.Type)

		if desc := field.Tag.Get("description"); desc != "" {
			propSchema.Value.Description = desc
		}

		properties[name] = propSchema
	}

	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: properties,
		},
	}
}

func ptr(s string) *string {
	return &s
}
