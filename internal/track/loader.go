package track

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Error code constants for track loading. CLI commands report them as is.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeNoTrack      = "E201" // No top-level track field
	ErrCodeSchema       = "E202" // Track does not satisfy the schema
	ErrCodeInvalidTrack = "E203" // Track failed semantic validation
)

// LoadError represents an error that occurred while loading a track.
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

// LoadCUE loads a track from a .cue file or from the .cue files directly
// inside a directory. Directory files are compiled one by one and unified,
// so they need no package clause and cannot import each other.
func LoadCUE(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("track not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing track: %v", err)}
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		value, err := compileFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return decode(ctx, value)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading track directory: %v", err)}
	}
	var value cue.Value
	files := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cue" {
			continue
		}
		v, err := compileFile(ctx, filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		if files == 0 {
			value = v
		} else {
			value = value.Unify(v)
		}
		files++
	}
	if files == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("no .cue files in %s", path)}
	}
	return decode(ctx, value)
}

func compileFile(ctx *cue.Context, path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading track: %v", err)}
	}
	return ctx.CompileBytes(data, cue.Filename(path)), nil
}

// LoadCUEBytes loads a track from CUE source. filename is used in error
// positions.
func LoadCUEBytes(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	return decode(ctx, ctx.CompileBytes(data, cue.Filename(filename)))
}

// decode checks value's track field against the schema and decodes it.
func decode(ctx *cue.Context, value cue.Value) (*Definition, error) {
	if err := value.Err(); err != nil {
		return nil, convertCUEError(ErrCodeBuildFailed, err)
	}

	trackVal := value.LookupPath(cue.ParsePath("track"))
	if !trackVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoTrack, Message: "no top-level track field", Pos: value.Pos()}
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, convertCUEError(ErrCodeGeneric, err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Track")).Unify(trackVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEError(ErrCodeSchema, err)
	}

	var def Definition
	if err := unified.Decode(&def); err != nil {
		return nil, convertCUEError(ErrCodeSchema, err)
	}
	if err := def.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidTrack, Message: err.Error(), Pos: trackVal.Pos()}
	}
	return &def, nil
}

// convertCUEError keeps the first error's position.
func convertCUEError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	loadErr := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}
