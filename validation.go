package toolbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Validatable is implemented by argument types that need business validation beyond
// the schema. Validate runs after decoding; a non-nil error is reported as KindDeserialize.
type Validatable interface {
	Validate() error
}

var printer = message.NewPrinter(language.English)

// compileSchema compiles s for instance validation. The resource URL is derived from the
// tool name only to make compiler messages readable.
func compileSchema(name string, s *jsonschema.Schema) (*jsv.Schema, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsv.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	loc := "https://toolbox.invalid/" + url.PathEscape(name) + ".json"
	c := jsv.NewCompiler()
	c.DefaultDraft(jsv.Draft2020)
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// parseInstance decodes raw arguments the way the validator expects (numbers kept exact).
func parseInstance(raw []byte) (any, error) {
	return jsv.UnmarshalJSON(bytes.NewReader(raw))
}

// validationFailure turns a validator error into a JSON pointer and a readable message,
// using the deepest first cause.
func validationFailure(err error) (path, msg string) {
	var ve *jsv.ValidationError
	if !errors.As(err, &ve) {
		return "", err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return pointer(ve.InstanceLocation), ve.ErrorKind.LocalizedString(printer)
}

// pointer renders tokens as an RFC 6901 JSON pointer.
func pointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		t = strings.ReplaceAll(t, "~", "~0")
		b.WriteString(strings.ReplaceAll(t, "/", "~1"))
	}
	return b.String()
}

// fieldPointer converts an encoding/json field path ("a.b") into a JSON pointer.
func fieldPointer(field string) string {
	if field == "" {
		return ""
	}
	return pointer(strings.Split(field, "."))
}

// validateCustom runs Validatable on v, trying the pointer receiver when the value does not implement it.
// A nil pointer (null input for an optional argument) has nothing to validate.
func validateCustom[T any](v *T) error {
	if rv := reflect.ValueOf(any(*v)); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	if val, ok := any(*v).(Validatable); ok {
		return val.Validate()
	}
	if val, ok := any(v).(Validatable); ok {
		return val.Validate()
	}
	return nil
}
