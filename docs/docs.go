// Package docs registers the hand-written OpenAPI document for gin-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "keyhaven gateway",
        "description": "Multi-tenant LLM API gateway: channel/key management, health probing, and OpenAI-compatible relay.",
        "version": "1.0"
    },
    "basePath": "/",
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness probe",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/api/channels": {
            "get": {"summary": "List channels", "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Create channel", "responses": {"201": {"description": "created"}}}
        },
        "/api/keys": {
            "get": {"summary": "List keys", "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Create key", "responses": {"201": {"description": "created"}}}
        },
        "/api/keys/import": {
            "post": {"summary": "Bulk-import keys", "responses": {"201": {"description": "created"}}}
        },
        "/api/proxies": {
            "get": {"summary": "List proxies", "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Create proxy", "responses": {"201": {"description": "created"}}}
        },
        "/api/tokens": {
            "get": {"summary": "List tokens", "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Create token", "responses": {"201": {"description": "created"}}}
        },
        "/api/stats": {
            "get": {"summary": "Dashboard aggregation", "responses": {"200": {"description": "ok"}}}
        },
        "/api/logs": {
            "get": {"summary": "Query request logs", "responses": {"200": {"description": "ok"}}}
        },
        "/v1/chat/completions": {
            "post": {"summary": "OpenAI-compatible chat completion relay", "responses": {"200": {"description": "ok"}}}
        },
        "/v1/models": {
            "get": {"summary": "List resolvable models", "responses": {"200": {"description": "ok"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger metadata, matching the shape swag's
// code generator produces so gin-swagger can resolve it at runtime.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "keyhaven gateway",
	Description:      "Multi-tenant LLM API gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
