package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Cooperative Training API",
        "description": "Enrollment, attendance and compliance tracking for cooperative officers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Officers", "description": "Officer directory"},
        {"name": "Trainings", "description": "Training session catalog"},
        {"name": "Enrollments", "description": "Registration ledger"},
        {"name": "Attendance", "description": "Presence ledger"},
        {"name": "Compliance", "description": "Derived compliance standing"},
        {"name": "Certificates", "description": "Completion certificates"},
        {"name": "Reports", "description": "Asynchronous exports"}
    ],
    "paths": {
        "/officers": {
            "get": {
                "tags": ["Officers"],
                "summary": "List officers",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/officers/{id}": {
            "get": {
                "tags": ["Officers"],
                "summary": "Get officer",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/officers/{id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List officer enrollments",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/officers/{id}/certificates": {
            "get": {
                "tags": ["Certificates"],
                "summary": "List officer certificates",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/officers/{id}/requirements": {
            "get": {
                "tags": ["Compliance"],
                "summary": "List assigned requirements",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Compliance"],
                "summary": "Replace required training set",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/officers/{id}/compliance": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Assess officer against assigned requirements",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/officers/{id}/compliance/assess": {
            "post": {
                "tags": ["Compliance"],
                "summary": "Assess officer against an explicit required set",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/compliance/overview": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Compliance overview across officers",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/trainings": {
            "get": {
                "tags": ["Trainings"],
                "summary": "List training sessions",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Trainings"],
                "summary": "Create training session",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/trainings/{id}": {
            "get": {
                "tags": ["Trainings"],
                "summary": "Get training with occupancy",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Trainings"],
                "summary": "Update training session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Trainings"],
                "summary": "Delete training session",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No content"}}
            }
        },
        "/trainings/{id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List training enrollments",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/trainings/{id}/roster": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Training roster with attendance reconciliation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/trainings/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List training attendance",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll an officer",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Enrolled"},
                    "200": {"description": "Already enrolled or capacity exceeded"},
                    "404": {"description": "Unknown officer or training"},
                    "412": {"description": "Training not open for enrollment"}
                }
            }
        },
        "/enrollments/{id}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Remove an enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No content"}}
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get a presence record",
                "parameters": [
                    {"name": "officer_id", "in": "query", "required": true, "type": "string"},
                    {"name": "training_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record presence",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Attendance"],
                "summary": "Remove a presence record",
                "parameters": [
                    {"name": "officer_id", "in": "query", "required": true, "type": "string"},
                    {"name": "training_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "No content"}}
            }
        },
        "/certificates": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Issue a certificate",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already issued"},
                    "412": {"description": "Attendance not recorded"}
                }
            }
        },
        "/certificates/{id}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Get certificate",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue report generation",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid token"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
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
