// Package openapi holds the HTTP API description served at /api/openapi.yaml.
package openapi

import _ "embed"

// Document is the OpenAPI 3 description of the REST API in YAML.
//
//go:embed openapi.yaml
var Document []byte
