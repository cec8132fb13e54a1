// Package docs provides generated OpenAPI documentation.
//
// aitrace API
//
//	@title			aitrace API
//	@version		1.0
//	@description	AI-generated text detection and AI-writing trace annotation.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/aitrace
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/aitrace/serve.go -o . --parseDependency --parseInternal --outputTypes go
