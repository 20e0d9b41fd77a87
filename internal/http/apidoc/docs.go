// Package apidoc registers the gradebook OpenAPI document with swag so the
// Swagger UI can serve it.
package apidoc

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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Storage readiness",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/schools": {
            "get": {
                "produces": ["application/json"],
                "tags": ["schools"],
                "summary": "List schools",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "string", "name": "sort", "in": "query"},
                    {"type": "boolean", "name": "desc", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["schools"],
                "summary": "Create school",
                "parameters": [{"name": "school", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.School"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.School"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/subjects/{id}/average": {
            "get": {
                "produces": ["application/json"],
                "tags": ["averages"],
                "summary": "Weighted subject average",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Average"}},
                    "404": {"description": "Subject not found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/schools/{id}/average": {
            "get": {
                "produces": ["application/json"],
                "tags": ["averages"],
                "summary": "Weighted school average",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Average"}}}
            }
        },
        "/semesters/{id}/average": {
            "get": {
                "produces": ["application/json"],
                "tags": ["averages"],
                "summary": "Weighted semester average",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Average"}}}
            }
        },
        "/averages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["averages"],
                "summary": "Weighted average over every grade",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Average"}}}
            }
        },
        "/exams/{id}/grade": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["grades"],
                "summary": "Attach a grade to an exam",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "grade", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.GradeInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Grade"}},
                    "409": {"description": "Exam already graded", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "tags": ["grades"],
                "summary": "Detach the grade from an exam",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/backups": {
            "post": {
                "produces": ["application/json"],
                "tags": ["backups"],
                "summary": "Upload a database snapshot",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/service.Backup"}}}
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {"$ref": "#/definitions/handler.errorEnvelope"}
            }
        },
        "model.School": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "version": {"type": "integer"},
                "app_instance_id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "model.Grade": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "version": {"type": "integer"},
                "score": {"type": "number"},
                "weight": {"type": "number"},
                "comment": {"type": "string"},
                "exam_id": {"type": "string"}
            }
        },
        "service.GradeInput": {
            "type": "object",
            "properties": {
                "score": {"type": "number"},
                "weight": {"type": "number"},
                "comment": {"type": "string"}
            }
        },
        "service.Average": {
            "type": "object",
            "properties": {
                "scope": {"type": "string"},
                "id": {"type": "string"},
                "value": {"type": "number", "x-nullable": true},
                "grades": {"type": "integer"}
            }
        },
        "service.Backup": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "size": {"type": "integer"},
                "created_at": {"type": "string"},
                "url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Gradebook API",
	Description:      "Local gradebook persistence and grade averages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
