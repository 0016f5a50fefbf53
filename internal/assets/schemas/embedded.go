// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time to ensure the CLI and library work
// correctly regardless of the working directory or installation location.
package schemasassets

import _ "embed"

// RunConfigSchema is the embedded run-configuration JSON schema.
//
// This allows config validation to work in installed binaries without
// requiring the schema file to be present on disk.
//
//go:embed run-config.schema.json
var RunConfigSchema []byte
