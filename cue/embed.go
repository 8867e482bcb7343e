// Package cue provides the embedded CUE schemas.
package cue

import _ "embed"

// ConfigSchema is the schema the service configuration is validated
// against after decoding.
//
//go:embed config.cue
var ConfigSchema string

// ConfigDefinition is the definition within ConfigSchema a configuration
// must unify with.
const ConfigDefinition = "#Config"
