// Package docs holds the OpenAPI document served at /swagger.
// It mirrors the swag annotations on the HTTP handlers; regenerate with
// "swag init --v3.1 -g cmd/server/main.go" after changing them.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT"
        }
    },
    "servers": [
        {
            "url": "{{.BasePath}}"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "health"
                ],
                "summary": "Health check",
                "description": "Report database connectivity, uptime and the number of pending exchanges",
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/handler.HealthResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/handler.HealthResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                }
            }
        },
        "/accounts/{id}/balance": {
            "get": {
                "tags": [
                    "accounts"
                ],
                "summary": "Get account balance",
                "description": "Return the crystal balance of an account, creating the account on first sight",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.BalanceResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/accounts/{id}/balance/adjust": {
            "post": {
                "tags": [
                    "accounts"
                ],
                "summary": "Adjust account balance",
                "description": "Credit or debit crystals. A debit never takes the balance below zero.",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    }
                ],
                "requestBody": {
                    "description": "Signed amount",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.AdjustBalanceRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.BalanceResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/accounts/{id}/rewards/{category}/claim": {
            "post": {
                "tags": [
                    "accounts"
                ],
                "summary": "Claim a periodic reward",
                "description": "Pay a crystal reward (daily, weekly, monthly) or draw a card reward (claim, craft, marry) when its cooldown has elapsed",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    },
                    {
                        "name": "category",
                        "in": "path",
                        "required": true,
                        "description": "Reward category",
                        "schema": {
                            "type": "string",
                            "enum": [
                                "daily",
                                "weekly",
                                "monthly",
                                "claim",
                                "craft",
                                "marry"
                            ]
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.RewardClaimResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/accounts/{id}/inventory": {
            "get": {
                "tags": [
                    "accounts"
                ],
                "summary": "List inventory",
                "description": "List the cards an account holds with their unit counts",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "required": false,
                        "description": "Page number",
                        "schema": {
                            "type": "integer",
                            "minimum": 1
                        }
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "required": false,
                        "description": "Items per page",
                        "schema": {
                            "type": "integer",
                            "minimum": 1,
                            "maximum": 100
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "type": "array",
                                                    "items": {
                                                        "$ref": "#/components/schemas/exchange.InventoryEntryResponse"
                                                    }
                                                },
                                                "meta": {
                                                    "$ref": "#/components/schemas/dto.Meta"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/accounts/{id}/inventory/{card_id}": {
            "get": {
                "tags": [
                    "accounts"
                ],
                "summary": "Count held units",
                "description": "Return how many units of one card an account holds",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    },
                    {
                        "name": "card_id",
                        "in": "path",
                        "required": true,
                        "description": "Card ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.InventoryCountResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/accounts/{id}/history": {
            "get": {
                "tags": [
                    "accounts"
                ],
                "summary": "List exchange history",
                "description": "List the audited exchanges an account took part in, newest first",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Account ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "required": false,
                        "description": "Page number",
                        "schema": {
                            "type": "integer",
                            "minimum": 1
                        }
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "required": false,
                        "description": "Items per page",
                        "schema": {
                            "type": "integer",
                            "minimum": 1,
                            "maximum": 100
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "type": "array",
                                                    "items": {
                                                        "$ref": "#/components/schemas/exchange.HistoryEntryResponse"
                                                    }
                                                },
                                                "meta": {
                                                    "$ref": "#/components/schemas/dto.Meta"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/cards": {
            "get": {
                "tags": [
                    "cards"
                ],
                "summary": "List cards",
                "description": "List the catalog with optional rarity filter and ordering",
                "parameters": [
                    {
                        "name": "rarity",
                        "in": "query",
                        "required": false,
                        "description": "Rarity name",
                        "schema": {
                            "type": "string"
                        }
                    },
                    {
                        "name": "order_by",
                        "in": "query",
                        "required": false,
                        "description": "Sort field",
                        "schema": {
                            "type": "string",
                            "enum": [
                                "id",
                                "name",
                                "anime",
                                "rarity_rank",
                                "created_at"
                            ]
                        }
                    },
                    {
                        "name": "order_dir",
                        "in": "query",
                        "required": false,
                        "description": "Sort direction",
                        "schema": {
                            "type": "string",
                            "enum": [
                                "asc",
                                "desc"
                            ]
                        }
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "required": false,
                        "description": "Page number",
                        "schema": {
                            "type": "integer",
                            "minimum": 1
                        }
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "required": false,
                        "description": "Items per page",
                        "schema": {
                            "type": "integer",
                            "minimum": 1,
                            "maximum": 100
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "type": "array",
                                                    "items": {
                                                        "$ref": "#/components/schemas/exchange.CardResponse"
                                                    }
                                                },
                                                "meta": {
                                                    "$ref": "#/components/schemas/dto.Meta"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/cards/{id}": {
            "get": {
                "tags": [
                    "cards"
                ],
                "summary": "Get card",
                "description": "Retrieve a catalog card by its ID",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Card ID",
                        "schema": {
                            "type": "integer",
                            "format": "int64"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.CardResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/gifts": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Propose a gift",
                "description": "Offer one unit of an owned card to another account. The recipient must accept before the unit moves.",
                "requestBody": {
                    "description": "Gift proposal",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.GiftRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/trades": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Propose a trade",
                "description": "Offer one owned card for one card held by the counterparty. Both cards must differ.",
                "requestBody": {
                    "description": "Trade proposal",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.TradeRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/purchases": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Preview a marketplace purchase",
                "description": "Quote the price of a card and hold the offer until the buyer confirms it.",
                "requestBody": {
                    "description": "Purchase preview",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.PurchaseRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/transfers": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Propose an admin transfer",
                "description": "Move one unit between two accounts on behalf of a moderator. The moderator confirms the proposal.",
                "requestBody": {
                    "description": "Admin transfer",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.TransferRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/resets": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Propose an account reset",
                "description": "Wipe every inventory unit of an account once a moderator confirms.",
                "requestBody": {
                    "description": "Account reset",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.ResetRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/cards": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Propose a new catalog card",
                "description": "Stage a card for the catalog. It is inserted once a moderator confirms.",
                "requestBody": {
                    "description": "Card definition",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.AddCardRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "201": {
                        "description": "Created",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/{token}": {
            "get": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Get a pending proposal",
                "description": "Retrieve a proposal that is still waiting for its responder",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "description": "Proposal token",
                        "schema": {
                            "type": "string"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.ProposalResponse"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/{token}/accept": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Accept a proposal",
                "description": "Resolve a proposal as accepted and apply its transfer. Only the designated responder may accept.",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "description": "Proposal token",
                        "schema": {
                            "type": "string"
                        }
                    },
                    {
                        "name": "Idempotency-Key",
                        "in": "header",
                        "required": false,
                        "description": "Replay key for gateway retries",
                        "schema": {
                            "type": "string"
                        }
                    }
                ],
                "requestBody": {
                    "description": "Responder",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.RespondRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.RespondResult"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exchanges/{token}/decline": {
            "post": {
                "tags": [
                    "exchanges"
                ],
                "summary": "Decline a proposal",
                "description": "Resolve a proposal as declined. Nothing moves.",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "description": "Proposal token",
                        "schema": {
                            "type": "string"
                        }
                    },
                    {
                        "name": "Idempotency-Key",
                        "in": "header",
                        "required": false,
                        "description": "Replay key for gateway retries",
                        "schema": {
                            "type": "string"
                        }
                    }
                ],
                "requestBody": {
                    "description": "Responder",
                    "required": true,
                    "content": {
                        "application/json": {
                            "schema": {
                                "$ref": "#/components/schemas/dto.RespondRequest"
                            }
                        }
                    }
                },
                "responses": {
                    "200": {
                        "description": "OK",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "success": {
                                                    "type": "boolean"
                                                },
                                                "data": {
                                                    "$ref": "#/components/schemas/exchange.RespondResult"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "content": {
                            "application/json": {
                                "schema": {
                                    "allOf": [
                                        {
                                            "$ref": "#/components/schemas/dto.Response"
                                        },
                                        {
                                            "type": "object",
                                            "properties": {
                                                "error": {
                                                    "$ref": "#/components/schemas/dto.ErrorInfo"
                                                }
                                            }
                                        }
                                    ]
                                }
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "components": {
        "schemas": {
            "dto.Response": {
                "type": "object",
                "properties": {
                    "success": {
                        "type": "boolean"
                    },
                    "data": {},
                    "error": {
                        "$ref": "#/components/schemas/dto.ErrorInfo"
                    },
                    "meta": {
                        "$ref": "#/components/schemas/dto.Meta"
                    }
                }
            },
            "dto.ErrorInfo": {
                "type": "object",
                "properties": {
                    "code": {
                        "type": "string"
                    },
                    "message": {
                        "type": "string"
                    },
                    "request_id": {
                        "type": "string"
                    },
                    "timestamp": {
                        "type": "string",
                        "format": "date-time"
                    },
                    "details": {
                        "type": "array",
                        "items": {
                            "$ref": "#/components/schemas/dto.ValidationDetail"
                        }
                    }
                }
            },
            "dto.ValidationDetail": {
                "type": "object",
                "properties": {
                    "field": {
                        "type": "string"
                    },
                    "message": {
                        "type": "string"
                    }
                }
            },
            "dto.Meta": {
                "type": "object",
                "properties": {
                    "total": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "page": {
                        "type": "integer"
                    },
                    "page_size": {
                        "type": "integer"
                    },
                    "total_pages": {
                        "type": "integer"
                    }
                }
            },
            "dto.AdjustBalanceRequest": {
                "type": "object",
                "properties": {
                    "issuer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "daily": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "weekly": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "monthly": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "given": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "issuer_id"
                ]
            },
            "dto.GiftRequest": {
                "type": "object",
                "properties": {
                    "sender_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "recipient_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "sender_id",
                    "recipient_id",
                    "card_id"
                ]
            },
            "dto.TradeRequest": {
                "type": "object",
                "properties": {
                    "proposer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "counterparty_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "offered_card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "requested_card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "proposer_id",
                    "counterparty_id",
                    "offered_card_id",
                    "requested_card_id"
                ]
            },
            "dto.PurchaseRequest": {
                "type": "object",
                "properties": {
                    "buyer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "buyer_id",
                    "card_id"
                ]
            },
            "dto.TransferRequest": {
                "type": "object",
                "properties": {
                    "issuer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "target_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "target_is_bot": {
                        "type": "boolean"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "issuer_id",
                    "target_id",
                    "card_id"
                ]
            },
            "dto.ResetRequest": {
                "type": "object",
                "properties": {
                    "issuer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "target_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "target_is_bot": {
                        "type": "boolean"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "issuer_id",
                    "target_id"
                ]
            },
            "dto.AddCardRequest": {
                "type": "object",
                "properties": {
                    "issuer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "name": {
                        "type": "string"
                    },
                    "anime": {
                        "type": "string"
                    },
                    "rarity": {
                        "type": "string"
                    },
                    "event": {
                        "type": "string"
                    },
                    "media_type": {
                        "type": "string",
                        "enum": [
                            "photo",
                            "video"
                        ]
                    },
                    "media_file_id": {
                        "type": "string"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "issuer_id",
                    "name",
                    "anime",
                    "rarity",
                    "media_type",
                    "media_file_id"
                ]
            },
            "dto.RespondRequest": {
                "type": "object",
                "properties": {
                    "responder_id": {
                        "type": "integer",
                        "format": "int64"
                    }
                },
                "required": [
                    "responder_id"
                ]
            },
            "exchange.BalanceResponse": {
                "type": "object",
                "properties": {
                    "account_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "daily": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "weekly": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "monthly": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "given": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "total": {
                        "type": "integer",
                        "format": "int64"
                    }
                }
            },
            "exchange.CardResponse": {
                "type": "object",
                "properties": {
                    "id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "name": {
                        "type": "string"
                    },
                    "anime": {
                        "type": "string"
                    },
                    "rarity": {
                        "type": "string"
                    },
                    "rarity_rank": {
                        "type": "integer"
                    },
                    "event": {
                        "type": "string"
                    },
                    "media_type": {
                        "type": "string"
                    },
                    "media_file_id": {
                        "type": "string"
                    },
                    "market_price": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "circulation": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "created_at": {
                        "type": "string",
                        "format": "date-time"
                    }
                }
            },
            "exchange.InventoryEntryResponse": {
                "type": "object",
                "properties": {
                    "card": {
                        "$ref": "#/components/schemas/exchange.CardResponse"
                    },
                    "quantity": {
                        "type": "integer",
                        "format": "int64"
                    }
                }
            },
            "exchange.InventoryCountResponse": {
                "type": "object",
                "properties": {
                    "account_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "quantity": {
                        "type": "integer",
                        "format": "int64"
                    }
                }
            },
            "exchange.HistoryEntryResponse": {
                "type": "object",
                "properties": {
                    "event_id": {
                        "type": "string"
                    },
                    "event_type": {
                        "type": "string"
                    },
                    "account_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "counterparty_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "price": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "units": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "details": {
                        "type": "string"
                    },
                    "occurred_at": {
                        "type": "string",
                        "format": "date-time"
                    }
                }
            },
            "exchange.RewardClaimResponse": {
                "type": "object",
                "properties": {
                    "category": {
                        "type": "string"
                    },
                    "amount": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "balance": {
                        "$ref": "#/components/schemas/exchange.BalanceResponse"
                    },
                    "card": {
                        "$ref": "#/components/schemas/exchange.CardResponse"
                    },
                    "refused": {
                        "type": "boolean"
                    }
                }
            },
            "exchange.ProposalResponse": {
                "type": "object",
                "properties": {
                    "token": {
                        "type": "string"
                    },
                    "kind": {
                        "type": "string"
                    },
                    "proposer_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "responder_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "target_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "offered_card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "requested_card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "price": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "chat_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card": {
                        "$ref": "#/components/schemas/ledger.CardDraft"
                    },
                    "created_at": {
                        "type": "string",
                        "format": "date-time"
                    },
                    "expires_at": {
                        "type": "string",
                        "format": "date-time"
                    }
                }
            },
            "exchange.RespondResult": {
                "type": "object",
                "properties": {
                    "token": {
                        "type": "string"
                    },
                    "kind": {
                        "type": "string"
                    },
                    "outcome": {
                        "type": "string",
                        "enum": [
                            "accepted",
                            "declined",
                            "expired",
                            "failed"
                        ]
                    },
                    "units_moved": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "removed_units": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "card_id": {
                        "type": "integer",
                        "format": "int64"
                    },
                    "balance": {
                        "$ref": "#/components/schemas/exchange.BalanceResponse"
                    }
                }
            },
            "ledger.CardDraft": {
                "type": "object",
                "properties": {
                    "name": {
                        "type": "string"
                    },
                    "anime": {
                        "type": "string"
                    },
                    "rarity": {
                        "type": "string"
                    },
                    "event": {
                        "type": "string"
                    },
                    "media_type": {
                        "type": "string"
                    },
                    "media_file_id": {
                        "type": "string"
                    }
                }
            },
            "handler.HealthResponse": {
                "type": "object",
                "properties": {
                    "status": {
                        "type": "string"
                    },
                    "database": {
                        "type": "string"
                    },
                    "version": {
                        "type": "string"
                    },
                    "go_version": {
                        "type": "string"
                    },
                    "uptime": {
                        "type": "string"
                    },
                    "pending_exchanges": {
                        "type": "integer"
                    }
                }
            }
        },
        "securitySchemes": {
            "BearerAuth": {
                "type": "apiKey",
                "in": "header",
                "name": "Authorization",
                "description": "Gateway service token. Format: \"Bearer {token}\""
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Waifu Exchange API",
	Description:      "Ledger, card catalog and pending exchanges of the waifu card bot",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
