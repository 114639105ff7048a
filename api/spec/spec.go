// Package spec ships the OpenAPI document with the binary.
package spec

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
