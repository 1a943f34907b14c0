package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rowkit/internal/compiler"
	"github.com/roach88/rowkit/internal/schema"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading schemas from a directory.
type LoadResult struct {
	Schemas   []*schema.Schema
	FileCount int // Number of schema files found
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemas loads entity schemas from every .cue, .yaml and .yml file
// under dir. CUE files in one directory are built together as a single
// instance, so an entity may use definitions from a sibling file.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSchemas(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindSchemaFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no schema files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error

	var cueDirs []string
	seen := make(map[string]bool)
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f)) != ".cue" {
			continue
		}
		d := filepath.Dir(f)
		if !seen[d] {
			seen[d] = true
			cueDirs = append(cueDirs, d)
		}
	}

	for _, d := range cueDirs {
		schemas, cueErrs := loadCUEDir(d)
		result.Schemas = append(result.Schemas, schemas...)
		errs = append(errs, cueErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
	}

	for _, f := range files {
		if strings.ToLower(filepath.Ext(f)) == ".cue" {
			continue
		}
		schemas, err := compiler.LoadFile(f)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeInvalidSchema, Message: err.Error()})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Schemas = append(result.Schemas, schemas...)
	}

	if len(result.Schemas) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no entities found in schemas"})
	}

	return result, errs
}

// loadCUEDir builds the CUE instance of one directory and compiles its
// entities.
func loadCUEDir(dir string) ([]*schema.Schema, []error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	schemas, compileErrs := compiler.CompileValue(value)
	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
	}
	return schemas, errs
}

// FindSchemaFiles walks the directory and returns all schema file paths in
// lexical order.
func FindSchemaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && compiler.IsSchemaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No schema files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeConfig      = "E007" // Configuration error
	ErrCodeStore       = "E008" // Database open or query failed
	ErrCodeCrypto      = "E009" // Key or cipher failure
	ErrCodeTestFailed  = "E010" // One or more scenarios failed

	// Schema compile errors
	ErrCodeMissingFields  = "E101" // No fields defined
	ErrCodeInvalidType    = "E102" // Unknown field type
	ErrCodeInvalidSchema  = "E103" // Schema rejected (identifiers, options)
	ErrCodeInvalidOption  = "E104" // Bad field option (sanitize rule)
	ErrCodeEntityNotFound = "E120" // Named entity not declared
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "fields":
		return ErrCodeMissingFields
	case field == "type":
		return ErrCodeInvalidType
	case field == "schema":
		return ErrCodeInvalidSchema
	case strings.HasSuffix(field, ".sanitize"):
		return ErrCodeInvalidOption
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// findEntity returns the named schema or a LoadError.
func findEntity(schemas []*schema.Schema, name string) (*schema.Schema, *LoadError) {
	s, ok := compiler.Find(schemas, name)
	if !ok {
		return nil, &LoadError{Code: ErrCodeEntityNotFound, Message: fmt.Sprintf("entity %q not found", name)}
	}
	return s, nil
}
