package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Assessment API",
        "description": "Assessment and grading engine: submissions, quiz scoring, item grades and final grade aggregation",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Submissions", "description": "Submission lifecycle"},
        {"name": "Quizzes", "description": "Quiz responses and scoring"},
        {"name": "Grades", "description": "Item grades and final grade aggregation"},
        {"name": "Exports", "description": "Grade report downloads"}
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
                    "503": {"description": "Unavailable"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/submissions": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List submissions for an enrollment",
                "parameters": [
                    {"name": "enrollmentId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Submissions"],
                "summary": "Start a submission for an item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Submission already exists"},
                    "422": {"description": "Item is not submittable"}
                }
            }
        },
        "/api/v1/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Submissions"],
                "summary": "Update submission content or status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid status transition"}
                }
            }
        },
        "/api/v1/submissions/{id}/score": {
            "get": {
                "tags": ["Quizzes"],
                "summary": "Calculate the quiz score of a submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/quiz-responses": {
            "post": {
                "tags": ["Quizzes"],
                "summary": "Record an answer to one quiz question",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitQuizResponseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Submission already graded"}
                }
            }
        },
        "/api/v1/items/{id}/questions": {
            "get": {
                "tags": ["Quizzes"],
                "summary": "List questions of a quiz item",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grades": {
            "put": {
                "tags": ["Grades"],
                "summary": "Record or overwrite a grade for an item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Points out of range"}
                }
            }
        },
        "/api/v1/enrollments/{id}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grades recorded for an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/items/{id}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grades recorded for an item",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/courses/{id}/my-grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "Grade summary of the current student in a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active enrollment"}
                }
            }
        },
        "/api/v1/courses/{id}/students/{studentId}/final-grade": {
            "post": {
                "tags": ["Grades"],
                "summary": "Recompute one student's final grade in a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/courses/{id}/finalize": {
            "post": {
                "tags": ["Grades"],
                "summary": "Recompute final grades for every active enrollment in a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/api/v1/courses/{id}/grade-report": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the course grade report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateSubmissionRequest": {
            "type": "object",
            "properties": {
                "enrollment_id": {"type": "string"},
                "item_id": {"type": "string"},
                "content": {"type": "string"},
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED"]}
            },
            "required": ["enrollment_id", "item_id"]
        },
        "UpdateSubmissionRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED", "GRADED"]}
            }
        },
        "SubmitQuizResponseRequest": {
            "type": "object",
            "properties": {
                "submission_id": {"type": "string"},
                "question_id": {"type": "string"},
                "raw_answer": {"type": "string"}
            },
            "required": ["submission_id", "question_id", "raw_answer"]
        },
        "GradeItemRequest": {
            "type": "object",
            "properties": {
                "enrollment_id": {"type": "string"},
                "item_id": {"type": "string"},
                "points_earned": {"type": "number"}
            },
            "required": ["enrollment_id", "item_id"]
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
