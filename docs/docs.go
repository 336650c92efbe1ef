// Package docs holds the OpenAPI description served at /swagger when
// SWAGGER_ENABLED is set. Regenerate with `go generate ./cmd/server`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/items": {
            "get": {"tags": ["Items"], "summary": "List content items", "operationId": "listItems", "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}},
            "post": {"tags": ["Items"], "summary": "Create a content item", "operationId": "createItem", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad request"}}}
        },
        "/items/{id}": {
            "get": {"tags": ["Items"], "summary": "Get a content item", "operationId": "getItem", "responses": {"200": {"description": "OK"}, "404": {"description": "Item not found"}}},
            "patch": {"tags": ["Items"], "summary": "Override item fields", "operationId": "patchItem", "responses": {"200": {"description": "OK"}, "404": {"description": "Item not found"}}},
            "delete": {"tags": ["Items"], "summary": "Delete a content item", "operationId": "deleteItem", "responses": {"204": {"description": "No Content"}}}
        },
        "/items/{id}/approve": {"post": {"tags": ["Items"], "summary": "Approve an item", "operationId": "approveItem", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid transition"}}}},
        "/items/{id}/reject": {"post": {"tags": ["Items"], "summary": "Reject an item", "operationId": "rejectItem", "responses": {"200": {"description": "OK"}}}},
        "/items/{id}/submit": {"post": {"tags": ["Items"], "summary": "Submit an item for review", "operationId": "submitItem", "responses": {"200": {"description": "OK"}}}},
        "/items/{id}/publish": {"post": {"tags": ["Items"], "summary": "Mark an item published", "operationId": "publishItem", "responses": {"200": {"description": "OK"}}}},
        "/items/{id}/feedback": {
            "get": {"tags": ["Feedback"], "summary": "List feedback for an item", "operationId": "listItemFeedback", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Feedback"], "summary": "Record feedback on an item", "operationId": "postFeedback", "responses": {"201": {"description": "Created"}}}
        },
        "/items/search": {"get": {"tags": ["Items"], "summary": "Find items on a similar topic", "operationId": "searchItems", "responses": {"200": {"description": "OK"}}}},
        "/items/stats/by-status": {"get": {"tags": ["Items"], "summary": "Count items per status", "operationId": "itemStatsByStatus", "responses": {"200": {"description": "OK"}}}},
        "/items/stats/by-platform": {"get": {"tags": ["Items"], "summary": "Count items per platform", "operationId": "itemStatsByPlatform", "responses": {"200": {"description": "OK"}}}},
        "/feedback/recent": {"get": {"tags": ["Feedback"], "summary": "List recent feedback", "operationId": "recentFeedback", "responses": {"200": {"description": "OK"}}}},
        "/feedback/stats": {"get": {"tags": ["Feedback"], "summary": "Feedback statistics", "operationId": "feedbackStats", "responses": {"200": {"description": "OK"}}}},
        "/agent/status": {"get": {"tags": ["Agent"], "summary": "Agent status", "operationId": "agentStatus", "responses": {"200": {"description": "OK"}}}},
        "/agent/health": {"get": {"tags": ["Agent"], "summary": "Agent health", "operationId": "agentHealth", "responses": {"200": {"description": "OK"}}}},
        "/agent/learning/insights": {"get": {"tags": ["Agent"], "summary": "Learning insights", "operationId": "learningInsights", "responses": {"200": {"description": "OK"}}}},
        "/agent/learning/events": {
            "get": {"tags": ["Agent"], "summary": "List learning events", "operationId": "listLearningEvents", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Agent"], "summary": "Record a learning event", "operationId": "postLearningEvent", "responses": {"201": {"description": "Created"}}}
        },
        "/agent/rollback": {"post": {"tags": ["Agent"], "summary": "Request a rollback", "operationId": "rollback", "responses": {"200": {"description": "OK"}}}},
        "/agent/decisions": {"post": {"tags": ["Agent"], "summary": "Record an agent decision", "operationId": "postDecision", "responses": {"201": {"description": "Created"}}}},
        "/agent/decisions/recent": {"get": {"tags": ["Agent"], "summary": "List recent agent decisions", "operationId": "recentDecisions", "responses": {"200": {"description": "OK"}}}},
        "/prompt/create": {"post": {"tags": ["Prompts"], "summary": "Register a prompt version", "operationId": "createPrompt", "responses": {"200": {"description": "Version already exists"}, "201": {"description": "Created"}}}},
        "/prompt/activate/{version}": {"post": {"tags": ["Prompts"], "summary": "Activate a prompt version", "operationId": "activatePrompt", "responses": {"200": {"description": "OK"}, "404": {"description": "Version not found"}}}},
        "/prompt/versions": {"get": {"tags": ["Prompts"], "summary": "List prompt versions", "operationId": "listPrompts", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "SMM Pipeline API",
	Description:      "Content items, editorial feedback and the agent learning loop.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
