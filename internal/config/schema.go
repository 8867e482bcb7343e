package config

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	gwscue "github.com/chazu/gws/cue"
)

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// loadSchema compiles the embedded schema once
func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		compiled := schemaCtx.CompileString(gwscue.ConfigSchema, cue.Filename("config.cue"))
		if compiled.Err() != nil {
			schemaErr = fmt.Errorf("failed to compile config schema: %w", compiled.Err())
			return
		}
		schemaDef = compiled.LookupPath(cue.ParsePath(gwscue.ConfigDefinition))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("%s definition not found in config schema", gwscue.ConfigDefinition)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// validateSchema unifies cfg with the schema and requires a concrete result
func validateSchema(cfg *Config) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	value := ctx.Encode(cfg)
	if value.Err() != nil {
		return fmt.Errorf("failed to encode config: %w", value.Err())
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %s", errors.Details(err, nil))
	}
	return nil
}
