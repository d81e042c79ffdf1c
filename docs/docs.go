// Package docs registers the OpenAPI document served under /swagger.
// Keep it in step with the @Router annotations in internal/handler.
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
        "/auth/login": {
            "post": {
                "description": "Authenticates a user with nickname/email and password, and returns a new session token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in a user",
                "parameters": [
                    {"description": "Login Info", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TokenResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Creates a new user and returns a session token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Registration Info", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/friends": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the caller's relationships, newest first. Filters: all, received (pending requests to me), sent (my pending requests), blocked (users I blocked).",
                "produces": ["application/json"],
                "tags": ["friendship"],
                "summary": "List my relationships",
                "parameters": [
                    {"type": "string", "default": "all", "description": "all | received | sent | blocked", "name": "filter", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Items per page", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PaginatedRelationshipResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/friends/pending-count": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Number of friend requests waiting for the caller.",
                "produces": ["application/json"],
                "tags": ["friendship"],
                "summary": "Pending request count",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PendingCountResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/friends/requests": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Sends a friend request, or re-sends one the target previously declined.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["friendship"],
                "summary": "Send friend request",
                "parameters": [
                    {"description": "Target user", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SendRequestInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/friendship.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Target user not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Relationship already exists or blocked", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/friends/{id}/respond": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Accept, decline, cancel, block or unblock. Accept/decline are for the recipient of a pending request, cancel for its sender, block/unblock for either party.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["friendship"],
                "summary": "Act on a relationship",
                "parameters": [
                    {"type": "string", "description": "Relationship ID", "name": "id", "in": "path", "required": true},
                    {"description": "Action", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RespondInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/friendship.Outcome"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/realtime/sse": {
            "get": {
                "description": "Streams pending_count_changed and friend_accepted events for the token's user.",
                "produces": ["text/event-stream"],
                "tags": ["realtime"],
                "summary": "Subscribe over server-sent events",
                "parameters": [
                    {"type": "string", "description": "Realtime token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/realtime/token": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a short-lived token that opens one realtime subscription.",
                "produces": ["application/json"],
                "tags": ["realtime"],
                "summary": "Issue a realtime token",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.RealtimeTokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/realtime/ws": {
            "get": {
                "description": "Same stream as the SSE endpoint, one JSON event per text message.",
                "tags": ["realtime"],
                "summary": "Subscribe over WebSocket",
                "parameters": [
                    {"type": "string", "description": "Realtime token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Retrieves the private profile of the caller, including the number of friend requests waiting for them.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get current user's info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PrivateUserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Retrieves the public profile of a user together with the caller's relationship to them.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get user by ID",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PublicUserResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "friendship.Outcome": {
            "type": "object",
            "properties": {
                "deleted": {"type": "boolean"},
                "relationship_id": {"type": "string"},
                "status": {"$ref": "#/definitions/models.RelationshipStatus"}
            }
        },
        "friendship.RelationshipView": {
            "type": "object",
            "properties": {
                "counterpart": {"$ref": "#/definitions/hub.FriendSummary"},
                "created_at": {"type": "string"},
                "direction": {"type": "string"},
                "id": {"type": "string"},
                "status": {"$ref": "#/definitions/models.RelationshipStatus"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "conflict"},
                "error": {"type": "string", "example": "An error message"}
            }
        },
        "handler.LoginInput": {
            "type": "object",
            "required": ["login", "password"],
            "properties": {
                "login": {"type": "string", "example": "testuser"},
                "password": {"type": "string", "example": "password123"}
            }
        },
        "handler.PaginatedRelationshipResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/friendship.RelationshipView"}},
                "meta": {"$ref": "#/definitions/repository.PaginationMeta"}
            }
        },
        "handler.PendingCountResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "example": 3}
            }
        },
        "handler.PrivateUserResponse": {
            "type": "object",
            "properties": {
                "avatar_url": {"type": "string"},
                "email": {"type": "string", "example": "test@example.com"},
                "id": {"type": "integer", "example": 1},
                "nickname": {"type": "string", "example": "testuser"},
                "pending_count": {"type": "integer", "example": 2}
            }
        },
        "handler.PublicUserResponse": {
            "type": "object",
            "properties": {
                "avatar_url": {"type": "string"},
                "id": {"type": "integer", "example": 2},
                "nickname": {"type": "string", "example": "otheruser"},
                "relationship": {"$ref": "#/definitions/friendship.RelationshipView"}
            }
        },
        "handler.RealtimeTokenResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "handler.RegisterInput": {
            "type": "object",
            "required": ["email", "nickname", "password"],
            "properties": {
                "avatar_url": {"type": "string", "example": "https://cdn.example.com/a.png"},
                "email": {"type": "string", "example": "test@example.com"},
                "nickname": {"type": "string", "maxLength": 32, "minLength": 3, "example": "testuser"},
                "password": {"type": "string", "minLength": 8, "example": "password123"}
            }
        },
        "handler.RespondInput": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["accept", "decline", "cancel", "block", "unblock"], "example": "accept"}
            }
        },
        "handler.SendRequestInput": {
            "type": "object",
            "required": ["target_user_id"],
            "properties": {
                "target_user_id": {"type": "integer", "example": 2}
            }
        },
        "handler.TokenResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            }
        },
        "hub.FriendSummary": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "models.RelationshipStatus": {
            "type": "string",
            "enum": ["pending", "accepted", "declined", "blocked"],
            "x-enum-varnames": ["StatusPending", "StatusAccepted", "StatusDeclined", "StatusBlocked"]
        },
        "repository.PaginationMeta": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Friendlink API",
	Description:      "Friend requests, relationships and realtime pending-count notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
