// Package config handles configuration loading for the keyward services.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. Both keyward-authd and keyward-datad share the schema; the
// resource service additionally reads the upstream, resources, and audit
// sections.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${JWT_SECRET}"
//
// # Environment Overrides
//
// The flat variables the services have always recognized override file
// content: JWT_SECRET, JWT_EXPIRY_MINUTES, PORT, TLS_CERT_PATH,
// TLS_KEY_PATH, AUTH_SERVICE_HOST, AUTH_SERVICE_PORT, DATA_DIR.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  addr: ":5000"
//	  cert_file: "cert.pem"
//	  key_file: "key.pem"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${JWT_SECRET}"   # required, shared by both services
//	  token_expiry_minutes: 60
//
// Authority location (resource service only):
//
//	upstream:
//	  host: "auth-service"
//	  port: 5000
//	  insecure_skip_verify: true    # self-signed authority certificate
//
// Principal and resource tables:
//
//	principals:
//	  user1: {password: "password1", role: "user"}
//	resources:
//	  user1: {id: 1, name: "User One", email: "user1@example.com"}
//
// Audit log (resource service only):
//
//	audit:
//	  dir: "/app/data"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
