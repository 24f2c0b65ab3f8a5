// Package swagger registers the gateway's OpenAPI document with swag so that
// http-swagger can serve it at /swagger/doc.json.
package swagger

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
        "/upload": {
            "post": {
                "description": "Streams the \"file\" part into the default bucket under its original name, creating the bucket if needed.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a document to the default bucket",
                "parameters": [
                    {"type": "file", "description": "Document to upload", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/upload/{bucket}": {
            "post": {
                "description": "Streams the \"file\" part into the bucket under its original name, creating the bucket if needed. Allowed extensions: pdf, doc, docx, txt.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a document",
                "parameters": [
                    {"type": "string", "description": "Bucket name", "name": "bucket", "in": "path", "required": true},
                    {"type": "file", "description": "Document to upload", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/files": {
            "get": {
                "description": "Returns the etag of every object in the default bucket, in store order.",
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List default bucket",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/document.etagList"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/files/{bucket}": {
            "get": {
                "description": "Returns the name and etag of every object in the bucket, in store order.",
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List bucket",
                "parameters": [
                    {"type": "string", "description": "Bucket name", "name": "bucket", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/document.fileList"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/delete/{etag}": {
            "delete": {
                "description": "Scans the default bucket and deletes the first object whose etag matches.",
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete by etag from the default bucket",
                "parameters": [
                    {"type": "string", "description": "Object etag", "name": "etag", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        },
        "/delete/{bucket}/{etag}": {
            "delete": {
                "description": "Scans the bucket listing and deletes the first object whose etag matches.",
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete by etag",
                "parameters": [
                    {"type": "string", "description": "Bucket name", "name": "bucket", "in": "path", "required": true},
                    {"type": "string", "description": "Object etag", "name": "etag", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Error"}}
                }
            }
        }
    },
    "definitions": {
        "document.etagList": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"type": "string"}}
            }
        },
        "document.fileEntry": {
            "type": "object",
            "properties": {
                "etag": {"type": "string", "example": "5d41402abc4b2a76b9719d911017c592"},
                "file_name": {"type": "string", "example": "report.pdf"}
            }
        },
        "document.fileList": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"$ref": "#/definitions/document.fileEntry"}}
            }
        },
        "response.Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "response.Message": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "docgate API",
	Description:      "Upload, list and delete documents in S3-compatible object storage.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
