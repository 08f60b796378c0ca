// Package docs registers the OpenAPI document served under /swagger.
//
// swagger.tmpl follows the swag annotations on the HTTP handlers and the
// general API info on cmd/server/main.go. Regenerate it with
// swag init -g cmd/server/main.go -o docs when an annotated route changes.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag/v2"
)

//go:embed swagger.tmpl
var docTemplate string

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Freight Marketplace API",
	Description:      "Load posting, bidding, allocation and booking lifecycle for a freight marketplace",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
