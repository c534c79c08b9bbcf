package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduFlow API",
        "description": "Course marketplace backend",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Local registration and sign-in"},
        {"name": "Users", "description": "Current-user profile and onboarding"},
        {"name": "Catalog", "description": "Public marketplace views"},
        {"name": "Courses", "description": "Instructor authoring"},
        {"name": "Enrollments", "description": "Enrollment, progress and certificates"},
        {"name": "Messages", "description": "Student ↔ instructor messaging"},
        {"name": "Favorites", "description": "Saved courses"},
        {"name": "Webhooks", "description": "Identity lifecycle sync"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a local account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Access token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid email or password"}
                }
            }
        },
        "/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "Profile", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"}
                }
            },
            "patch": {
                "tags": ["Users"],
                "summary": "Update locally editable profile fields",
                "responses": {
                    "200": {"description": "Updated profile"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/onboarding": {
            "post": {
                "tags": ["Users"],
                "summary": "Complete first-time onboarding",
                "responses": {
                    "200": {"description": "Onboarded profile"},
                    "400": {"description": "Unknown role"}
                }
            }
        },
        "/catalog/popular": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Most-enrolled published courses",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Course cards"}
                }
            }
        },
        "/catalog/new": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Newest published courses",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Course cards"}
                }
            }
        },
        "/catalog/courses/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Course detail with outline, resources and rating",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Course detail"},
                    "404": {"description": "Course not found or draft"}
                }
            }
        },
        "/courses": {
            "post": {
                "tags": ["Courses"],
                "summary": "Create a draft course",
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "Requires instructor role"}
                }
            }
        },
        "/courses/{id}": {
            "patch": {
                "tags": ["Courses"],
                "summary": "Update course fields or publish",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Updated course"},
                    "403": {"description": "Not the course owner"}
                }
            }
        },
        "/instructor/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "Instructor dashboard listing with aggregates",
                "responses": {
                    "200": {"description": "Courses with student counts and ratings"}
                }
            }
        },
        "/courses/{id}/roster.csv": {
            "get": {
                "tags": ["Courses"],
                "summary": "Download the enrolled-student roster",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "CSV roster"},
                    "403": {"description": "Not the course owner"}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll in a published course",
                "responses": {
                    "201": {"description": "Enrollment created"},
                    "409": {"description": "Already enrolled"}
                }
            }
        },
        "/me/courses": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Enrolled courses with progress",
                "responses": {
                    "200": {"description": "Enrollment summaries"}
                }
            }
        },
        "/enrollments/{id}/lessons/{lessonID}/progress": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Record lesson progress",
                "responses": {
                    "200": {"description": "Progress recorded"},
                    "403": {"description": "Not the enrollment owner"}
                }
            }
        },
        "/enrollments/{id}/review": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Review an enrolled course",
                "responses": {
                    "201": {"description": "Review created"},
                    "409": {"description": "Course already reviewed"}
                }
            }
        },
        "/enrollments/{id}/certificate": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Download the completion certificate",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF certificate"},
                    "412": {"description": "Course not completed"}
                }
            }
        },
        "/conversations": {
            "get": {
                "tags": ["Messages"],
                "summary": "Conversation list with unread counts",
                "responses": {
                    "200": {"description": "Conversations"}
                }
            }
        },
        "/messages/{peerID}": {
            "get": {
                "tags": ["Messages"],
                "summary": "Message thread with one peer",
                "responses": {
                    "200": {"description": "Messages, oldest first"}
                }
            }
        },
        "/messages": {
            "post": {
                "tags": ["Messages"],
                "summary": "Send a message",
                "responses": {
                    "201": {"description": "Message delivered"},
                    "404": {"description": "Receiver not found"}
                }
            }
        },
        "/favorites": {
            "get": {
                "tags": ["Favorites"],
                "summary": "List saved courses",
                "responses": {
                    "200": {"description": "Course cards"}
                }
            }
        },
        "/favorites/{id}": {
            "post": {
                "tags": ["Favorites"],
                "summary": "Save a course",
                "responses": {
                    "201": {"description": "Saved"},
                    "409": {"description": "Course already saved"}
                }
            },
            "delete": {
                "tags": ["Favorites"],
                "summary": "Remove a saved course",
                "responses": {
                    "204": {"description": "Removed"},
                    "404": {"description": "Course not saved"}
                }
            }
        },
        "/webhooks/identity": {
            "post": {
                "tags": ["Webhooks"],
                "summary": "Receive a signed identity lifecycle event",
                "responses": {
                    "200": {"description": "Event applied"},
                    "400": {"description": "Signature rejected or payload malformed"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "instructor"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"}
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
