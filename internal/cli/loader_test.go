package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchemas_MixedFormats(t *testing.T) {
	result, errs := LoadSchemas(schemasDir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FileCount)

	names := make([]string, 0, len(result.Schemas))
	for _, s := range result.Schemas {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Customer", "Note"}, names)
}

func TestLoadSchemas_DirectoryErrors(t *testing.T) {
	empty := t.TempDir()
	file := filepath.Join(empty, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", "/nonexistent/schemas", ErrCodeNotFound},
		{"not a directory", file, ErrCodeNotFound},
		{"no schema files", empty, ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadSchemas(tt.dir, LoadModeCollectAll)
			assert.Nil(t, result)
			require.Len(t, errs, 1)
			var loadErr *LoadError
			require.True(t, errors.As(errs[0], &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadSchemas_CollectAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: A\nfields:\n  - name: id\n    type: decimal\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: B\nfields: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("name: C\nfields:\n  - name: id\n    type: int\n"), 0o644))

	result, errs := LoadSchemas(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	assert.Len(t, errs, 2)
	require.Len(t, result.Schemas, 1)
	assert.Equal(t, "C", result.Schemas[0].Name)

	_, errs = LoadSchemas(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadSchemas_CUEError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("entity: Bad: {\n\tfields: {id: \"decimal\"}\n}\n"), 0o644))

	_, errs := LoadSchemas(dir, LoadModeCollectAll)
	require.NotEmpty(t, errs)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeInvalidType, loadErr.Code)
}

func TestFindSchemaFiles(t *testing.T) {
	files, err := FindSchemaFiles(schemasDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(schemasDir, "customer.yaml"),
		filepath.Join(schemasDir, "note.cue"),
	}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"fields", ErrCodeMissingFields},
		{"type", ErrCodeInvalidType},
		{"schema", ErrCodeInvalidSchema},
		{"fields.name.sanitize", ErrCodeInvalidOption},
		{"cue", ErrCodeBuildFailed},
		{"other", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no schema files found in x"}
	assert.Equal(t, "E003: no schema files found in x", err.Error())
}

func TestFindEntity(t *testing.T) {
	result, errs := LoadSchemas(schemasDir, LoadModeFailFast)
	require.Empty(t, errs)

	s, lerr := findEntity(result.Schemas, "Note")
	require.Nil(t, lerr)
	assert.Equal(t, "notes", s.Table)

	_, lerr = findEntity(result.Schemas, "Invoice")
	require.NotNil(t, lerr)
	assert.Equal(t, ErrCodeEntityNotFound, lerr.Code)
	assert.Contains(t, lerr.Message, `"Invoice"`)
}
