package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Facility Admin API",
        "description": "Meeting room scheduling, work orders and reporting for the facilities dashboard",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Authentication", "description": "Admin login and sessions"},
        {"name": "Bookings", "description": "Meeting room scheduler"},
        {"name": "Rooms", "description": "Bookable meeting rooms"},
        {"name": "Technicians", "description": "Technician roster"},
        {"name": "Categories", "description": "Work order floor categories"},
        {"name": "WorkOrders", "description": "Maintenance work orders"},
        {"name": "Dashboard", "description": "Dashboard aggregates"},
        {"name": "Reports", "description": "Completion history and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate admin",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not an admin", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "security": [],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current admin",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/forgot-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Start password reset",
                "security": [],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/reset-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Complete password reset",
                "security": [],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings or the day view of a date",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["all", "meeting", "appointment", "task", "break"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error or BOOKING_CONFLICT with data.conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Bookings"],
                "summary": "Reschedule a booking",
                "parameters": [
                    {"name": "booking_id", "in": "query", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error or BOOKING_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "parameters": [
                    {"name": "booking_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/schedule": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Room columns of a day",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "type", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/bookings/types": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Bookable event types",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List meeting rooms",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admins": {
            "get": {
                "tags": ["Authentication"],
                "summary": "List admins",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/technicians": {
            "get": {
                "tags": ["Technicians"],
                "summary": "List technicians",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Technicians"],
                "summary": "Register technician",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/technicians/{id}": {
            "get": {
                "tags": ["Technicians"],
                "summary": "Get technician",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Technicians"],
                "summary": "Update technician",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Technicians"],
                "summary": "Delete technician",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/categories": {
            "get": {
                "tags": ["Categories"],
                "summary": "List categories",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Categories"],
                "summary": "Create category",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/categories/{id}": {
            "put": {
                "tags": ["Categories"],
                "summary": "Rename category",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Categories"],
                "summary": "Delete category",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/work-orders": {
            "get": {
                "tags": ["WorkOrders"],
                "summary": "List work orders",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "technician_id", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["WorkOrders"],
                "summary": "Create work order",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/work-orders/statuses": {
            "get": {
                "tags": ["WorkOrders"],
                "summary": "Statuses with display labels",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/work-orders/stream": {
            "get": {
                "tags": ["WorkOrders"],
                "summary": "Live work order changes (server-sent events)",
                "produces": ["text/event-stream"],
                "parameters": [{"name": "access_token", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "Event stream"}, "503": {"description": "Feed not running"}}
            }
        },
        "/work-orders/{id}": {
            "get": {
                "tags": ["WorkOrders"],
                "summary": "Get work order",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["WorkOrders"],
                "summary": "Update work order",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["WorkOrders"],
                "summary": "Delete work order",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/work-orders/{id}/status": {
            "patch": {
                "tags": ["WorkOrders"],
                "summary": "Change work order status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Stats with filter reference lists",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Stat cards",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/range": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Charts for a date range",
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "format": "date"},
                    {"name": "end", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/monthly": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Work orders per month",
                "parameters": [{"name": "year", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Completed work orders with working duration",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "technician_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/work-orders/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download completion report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/reports/exports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Recent export jobs",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Queue export job",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/exports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download finished export by signed token",
                "security": [],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "BookingRequest": {
            "type": "object",
            "required": ["title", "date", "startTime", "type", "location"],
            "properties": {
                "title": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "integer", "minimum": 0, "maximum": 23},
                "duration": {"type": "integer", "minimum": 1},
                "type": {"type": "string", "enum": ["Meeting", "Appointment", "Task", "Break"]},
                "location": {"type": "string"},
                "description": {"type": "string"}
            }
        },
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
