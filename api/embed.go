// Package api holds the published OpenAPI document.
package api

import _ "embed"

// OpenAPI is the YAML OpenAPI document served at /api/v1/openapi.yaml
//
//go:embed openapi.yaml
var OpenAPI []byte
