// Package docs registra a especificação OpenAPI servida em /swagger/.
// Gerado a partir das anotações dos handlers com `swag init -g cmd/main.go`.
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
        "/ping": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "pong"}}
            }
        },
        "/v1/materials": {
            "get": {
                "produces": ["application/json"],
                "tags": ["materials"],
                "summary": "Listar materiais",
                "parameters": [
                    {"type": "string", "description": "Trecho do nome (sem diferenciar maiúsculas)", "name": "name", "in": "query"},
                    {"type": "string", "description": "Categoria", "name": "category", "in": "query"},
                    {"type": "string", "description": "available, under-maintenance ou decommissioned", "name": "status", "in": "query"},
                    {"type": "string", "description": "Trecho do ID ou do nome", "name": "search", "in": "query"},
                    {"type": "boolean", "description": "Somente abaixo do estoque mínimo", "name": "below_minimum", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Material"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["materials"],
                "summary": "Cadastrar material",
                "parameters": [
                    {"description": "Material", "name": "material", "in": "body", "required": true, "schema": {"$ref": "#/definitions/material.CreateMaterialRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Material"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/materials/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["materials"],
                "summary": "Consultar material",
                "parameters": [
                    {"type": "string", "description": "ID do material", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Material"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/materials/{id}/status": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["materials"],
                "summary": "Alterar status do material",
                "parameters": [
                    {"type": "string", "description": "ID do material", "name": "id", "in": "path", "required": true},
                    {"description": "Novo status", "name": "status", "in": "body", "required": true, "schema": {"$ref": "#/definitions/material.StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Material"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/movements": {
            "get": {
                "produces": ["application/json"],
                "tags": ["movements"],
                "summary": "Histórico de movimentações",
                "parameters": [
                    {"type": "string", "description": "ID do material", "name": "material_id", "in": "query"},
                    {"type": "string", "description": "entry ou exit", "name": "kind", "in": "query"},
                    {"type": "string", "description": "Data inicial (inclusiva)", "name": "from", "in": "query"},
                    {"type": "string", "description": "Data final (inclusiva)", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Movement"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/movements/entries": {
            "post": {
                "description": "Recebimento de material. Um ID desconhecido cadastra o material.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["movements"],
                "summary": "Registrar entrada",
                "parameters": [
                    {"type": "string", "description": "Usuário responsável", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Entrada", "name": "entry", "in": "body", "required": true, "schema": {"$ref": "#/definitions/movement.MovementPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.StockChange"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/movements/exits": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["movements"],
                "summary": "Registrar saída",
                "parameters": [
                    {"type": "string", "description": "Usuário responsável", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Saída", "name": "exit", "in": "body", "required": true, "schema": {"$ref": "#/definitions/movement.MovementPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.StockChange"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "category": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "domain.Material": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "location": {"type": "string"},
                "quantity": {"type": "string", "example": "30.00"},
                "unit": {"type": "string", "enum": ["unit", "kg", "liter", "package", "box", "roll", "gallon"]},
                "minimum_stock": {"type": "string"},
                "status": {"type": "string", "enum": ["available", "under-maintenance", "decommissioned"]},
                "last_movement": {"type": "string", "enum": ["entry", "exit"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Movement": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "material_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["entry", "exit"]},
                "quantity": {"type": "string"},
                "previous_quantity": {"type": "string"},
                "resulting_quantity": {"type": "string"},
                "timestamp": {"type": "string"},
                "user_id": {"type": "string"},
                "notes": {"type": "string"},
                "recorded_at": {"type": "string"}
            }
        },
        "domain.StockChange": {
            "type": "object",
            "properties": {
                "material": {"$ref": "#/definitions/domain.Material"},
                "movement": {"$ref": "#/definitions/domain.Movement"}
            }
        },
        "material.CreateMaterialRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "location": {"type": "string"},
                "unit": {"type": "string"},
                "minimum_stock": {"type": "string"}
            }
        },
        "material.StatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["available", "under-maintenance", "decommissioned"]}
            }
        },
        "movement.MovementPayload": {
            "type": "object",
            "properties": {
                "material_id": {"type": "string"},
                "quantity": {"type": "string", "example": "20"},
                "date": {"type": "string", "example": "2024-01-10"},
                "notes": {"type": "string"},
                "name": {"type": "string"},
                "unit": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "location": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo guarda os metadados exportados da API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SIAM - Sistema de Inventário de Almoxarifado",
	Description:      "Controle de materiais, entradas e saídas do almoxarifado da cozinha.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
