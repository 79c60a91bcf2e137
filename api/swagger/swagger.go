package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sidang Scheduler API",
        "description": "Assigns examiners and supervisors to thesis-defense sessions.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedules", "description": "Panel schedule generation and stored runs"},
        {"name": "System", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedule runs",
                "parameters": [
                    {"name": "strategy", "in": "query", "type": "string", "enum": ["capacity", "scored", "rollout"]},
                    {"name": "offset", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer", "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/generate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate a panel schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/upload": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate a panel schedule from CSV files",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "sessions", "in": "formData", "type": "file", "required": true},
                    {"name": "expertise", "in": "formData", "type": "file", "required": true},
                    {"name": "strategy", "in": "formData", "type": "string", "enum": ["capacity", "scored", "rollout"]},
                    {"name": "delimiter", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a schedule run",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a schedule run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export a schedule run",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DefenseSession": {
            "type": "object",
            "required": ["id", "date", "time", "room", "studentId", "title", "field"],
            "properties": {
                "id": {"type": "string"},
                "date": {"type": "string", "example": "2024-06-03"},
                "time": {"type": "string", "example": "09:00"},
                "room": {"type": "string"},
                "studentId": {"type": "string"},
                "title": {"type": "string"},
                "field": {"type": "string"}
            }
        },
        "Lecturer": {
            "type": "object",
            "required": ["id", "expertise"],
            "properties": {
                "id": {"type": "string"},
                "expertise": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ScheduleOptions": {
            "type": "object",
            "properties": {
                "dailyCap": {"type": "integer"},
                "capPolicy": {"type": "string", "enum": ["ceil", "scaled", "none"]},
                "epsilon": {"type": "number"},
                "maxIterations": {"type": "integer"},
                "seed": {"type": "integer"},
                "roles": {"type": "array", "items": {"type": "string", "enum": ["examiner1", "examiner2", "supervisor1", "supervisor2"]}},
                "slotConflicts": {"type": "boolean"},
                "timeBudgetMs": {"type": "integer"}
            }
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "required": ["sessions", "lecturers"],
            "properties": {
                "strategy": {"type": "string", "enum": ["capacity", "scored", "rollout"]},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/DefenseSession"}},
                "lecturers": {"type": "array", "items": {"$ref": "#/definitions/Lecturer"}},
                "options": {"$ref": "#/definitions/ScheduleOptions"},
                "persist": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "offset": {"type": "integer"},
                "limit": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
