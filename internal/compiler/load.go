package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/rowkit/internal/schema"
)

// CompileValue compiles every entity declared under the top-level "entity"
// struct of v, in declaration order. It keeps going after a failing entity
// and returns every error.
func CompileValue(v cue.Value) ([]*schema.Schema, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, nil
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var out []*schema.Schema
	var errs []error
	for iter.Next() {
		s, err := CompileEntity(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("entity.%s: %w", iter.Label(), err))
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

// IsSchemaFile reports whether path has a schema file extension.
func IsSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile reads the schemas declared in one .cue, .yaml or .yml file.
func LoadFile(path string) ([]*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(path))
		schemas, errs := CompileValue(v)
		if len(errs) > 0 {
			return nil, fmt.Errorf("%s: %w", path, errs[0])
		}
		if len(schemas) == 0 {
			return nil, fmt.Errorf("%s: no entities declared", path)
		}
		return schemas, nil
	case ".yaml", ".yml":
		schemas, err := schema.ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return schemas, nil
	default:
		return nil, fmt.Errorf("%s: unsupported schema file extension", path)
	}
}

// LoadFiles loads every file in order and concatenates the schemas.
func LoadFiles(paths []string) ([]*schema.Schema, error) {
	var out []*schema.Schema
	for _, p := range paths {
		schemas, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, schemas...)
	}
	return out, nil
}

// Find returns the schema with the given entity name.
func Find(schemas []*schema.Schema, name string) (*schema.Schema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
