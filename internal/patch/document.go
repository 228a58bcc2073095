package patch

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
)

//go:embed schema.cue
var schemaCUE string

// DocumentError describes one schema violation in a patch record.
type DocumentError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e DocumentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidateDocument checks a raw TOML patch record against the embedded CUE
// schema. All violations found are returned together; nil means the record
// is well-formed. Unmarshal still has the final word on ref and time
// parsing; this is the lint pass for human-edited files.
func ValidateDocument(data []byte) []error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return []error{DocumentError{Message: fmt.Sprintf("parse TOML: %v", err)}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		// The schema is embedded and fixed; failing to compile it is a
		// build defect, not a data error.
		panic(fmt.Sprintf("patch: compile schema: %v", err))
	}

	def := schema.LookupPath(cue.ParsePath("#Patch"))
	if !def.Exists() {
		panic("patch: schema has no #Patch definition")
	}

	doc := ctx.Encode(stringifyTimes(raw))
	if err := doc.Err(); err != nil {
		return []error{DocumentError{Message: fmt.Sprintf("encode record: %v", err)}}
	}

	unified := def.Unify(doc)
	err := unified.Validate(cue.Concrete(true), cue.Final())
	if err == nil {
		return nil
	}

	var errs []error
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, DocumentError{
			Path:    strings.Join(e.Path(), "."),
			Message: e.Error(),
		})
	}
	return errs
}

// stringifyTimes rewrites every time.Time in a decoded TOML tree to its
// RFC 3339 string form, which is what the schema's time.Time constraint
// matches against.
func stringifyTimes(v any) any {
	switch val := v.(type) {
	case time.Time:
		return NormalizeTime(val).Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = stringifyTimes(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = stringifyTimes(elem)
		}
		return out
	default:
		return v
	}
}
