package schema

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
)

// Describer is implemented by types that supply their own schema. The method name
// matches the convention used by invopop/jsonschema's reflector.
type Describer interface {
	JSONSchema() *jsonschema.Schema
}

var (
	describerType     = reflect.TypeFor[Describer]()
	tupleType         = reflect.TypeFor[Tuple]()
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	rawMessageType    = reflect.TypeFor[json.RawMessage]()
)

// Engine derives and caches schemas. The zero value is not usable; call NewEngine.
type Engine struct {
	disabled bool
	cache    sync.Map // reflect.Type -> *jsonschema.Schema

	customMu sync.RWMutex
	custom   map[reflect.Type]*jsonschema.Schema
}

// Option configures an Engine.
type Option func(*Engine)

// Disabled turns schema support off: Of returns nil for every type.
func Disabled() Option {
	return func(e *Engine) {
		e.disabled = true
	}
}

// NewEngine creates an Engine. time.Time is pre-registered as a date-time string.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		custom: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[time.Time](): {Type: "string", Format: "date-time"},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Default returns the process-wide engine used by For and Of.
func Default() *Engine { return defaultEngine }

// For returns the schema of T from the default engine.
func For[T any]() *jsonschema.Schema {
	return defaultEngine.Of(reflect.TypeFor[T]())
}

// Of returns the schema of t from the default engine.
func Of(t reflect.Type) *jsonschema.Schema {
	return defaultEngine.Of(t)
}

// Enabled reports whether the engine produces schemas.
func (e *Engine) Enabled() bool { return e != nil && !e.disabled }

// Of returns the schema for t. It never fails: unsupported kinds (chan, func, complex)
// map to the empty schema, and a disabled engine returns nil. The result is computed
// once per type and the same node is returned thereafter.
func (e *Engine) Of(t reflect.Type) *jsonschema.Schema {
	if !e.Enabled() || t == nil {
		return nil
	}
	if s, ok := e.cache.Load(t); ok {
		return s.(*jsonschema.Schema)
	}
	s, _ := e.build(t, make(map[reflect.Type]bool))
	return s
}

// RegisterType maps the type of emptyInstance to a fixed {type, format} schema.
// emptyInstance must not be nil and jsonType must not be empty. Pointer fields (*T) use
// the same mapping as T. Registering clears the cache, so call it at startup before
// schemas are exported.
func (e *Engine) RegisterType(emptyInstance any, jsonType, format string) {
	if emptyInstance == nil {
		panic("schema: RegisterType emptyInstance must not be nil")
	}
	if jsonType == "" {
		panic("schema: RegisterType jsonType must not be empty")
	}
	t := reflect.TypeOf(emptyInstance)
	e.customMu.Lock()
	e.custom[t] = &jsonschema.Schema{Type: jsonType, Format: format}
	e.customMu.Unlock()
	e.cache.Clear()
}

// RegisterType registers a custom type on the default engine.
func RegisterType(emptyInstance any, jsonType, format string) {
	defaultEngine.RegisterType(emptyInstance, jsonType, format)
}

func (e *Engine) customFor(t reflect.Type) (*jsonschema.Schema, bool) {
	e.customMu.RLock()
	defer e.customMu.RUnlock()
	s, ok := e.custom[t]
	return s, ok
}

// cuts lists the types whose recursive back-edges were replaced by the empty schema
// while building a node.
type cuts []reflect.Type

func (c cuts) without(t reflect.Type) cuts {
	out := c[:0:0]
	for _, ct := range c {
		if ct != t {
			out = append(out, ct)
		}
	}
	return out
}

// build returns the schema for t and the back-edges still open below it. A node is
// cached only once every back-edge under it points at the node itself; otherwise the
// same type reached at a different depth would get a truncated schema.
func (e *Engine) build(t reflect.Type, visiting map[reflect.Type]bool) (*jsonschema.Schema, cuts) {
	if s, ok := e.cache.Load(t); ok {
		return s.(*jsonschema.Schema), nil
	}
	if visiting[t] {
		return anySchema(), cuts{t}
	}
	visiting[t] = true
	s, open := e.derive(t, visiting)
	delete(visiting, t)
	if open = open.without(t); len(open) > 0 {
		return s, open
	}
	actual, _ := e.cache.LoadOrStore(t, s)
	return actual.(*jsonschema.Schema), nil
}

func (e *Engine) derive(t reflect.Type, visiting map[reflect.Type]bool) (*jsonschema.Schema, cuts) {
	if s, ok := e.customFor(t); ok {
		return s, nil
	}
	if t.Kind() == reflect.Pointer {
		inner, open := e.build(t.Elem(), visiting)
		return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{inner, nullSchema()}}, open
	}
	if implements(t, describerType) {
		if s := reflect.New(t).Interface().(Describer).JSONSchema(); s != nil {
			return s, nil
		}
		return anySchema(), nil
	}
	if elems, ok := tupleTypes(t); ok {
		return e.tuple(elems, visiting)
	}
	if t == rawMessageType {
		return anySchema(), nil
	}
	if implementsValue(t, marshalerType) {
		// Custom MarshalJSON without a schema: the shape is unknown.
		return anySchema(), nil
	}
	if implementsValue(t, textMarshalerType) {
		return &jsonschema.Schema{Type: "string"}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &jsonschema.Schema{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &jsonschema.Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &jsonschema.Schema{Type: "number"}, nil
	case reflect.String:
		return &jsonschema.Schema{Type: "string"}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !implements(t.Elem(), marshalerType) {
			return &jsonschema.Schema{Type: "string", ContentEncoding: "base64"}, nil
		}
		items, open := e.build(t.Elem(), visiting)
		return &jsonschema.Schema{Type: "array", Items: items}, open
	case reflect.Array:
		items, open := e.build(t.Elem(), visiting)
		n := uint64(t.Len())
		return &jsonschema.Schema{Type: "array", Items: items, MinItems: &n, MaxItems: &n}, open
	case reflect.Map:
		values, open := e.build(t.Elem(), visiting)
		return &jsonschema.Schema{Type: "object", AdditionalProperties: values}, open
	case reflect.Struct:
		return e.object(t, visiting)
	default:
		// interface values accept anything; chan, func and complex never reach JSON.
		return anySchema(), nil
	}
}

func (e *Engine) tuple(elems []reflect.Type, visiting map[reflect.Type]bool) (*jsonschema.Schema, cuts) {
	s := &jsonschema.Schema{Type: "array", PrefixItems: make([]*jsonschema.Schema, len(elems))}
	var open cuts
	for i, et := range elems {
		item, c := e.build(et, visiting)
		s.PrefixItems[i] = item
		open = append(open, c...)
	}
	n := uint64(len(elems))
	s.MinItems = &n
	s.MaxItems = &n
	return s, open
}

func (e *Engine) object(t reflect.Type, visiting map[reflect.Type]bool) (*jsonschema.Schema, cuts) {
	s := &jsonschema.Schema{Type: "object", Properties: jsonschema.NewProperties()}
	var required []string
	open := e.addFields(s, &required, t, visiting, false)
	if len(required) > 0 {
		s.Required = required
	}
	return s, open
}

// addFields adds the JSON-visible fields of struct t to s. Direct fields are added
// before promoted ones so that the shallower field wins on a name clash, as in
// encoding/json. Fields reached through an embedded pointer are never required.
func (e *Engine) addFields(s *jsonschema.Schema, required *[]string, t reflect.Type, visiting map[reflect.Type]bool, optional bool) cuts {
	var open cuts
	var embedded []reflect.StructField
	for i := range t.NumField() {
		field := t.Field(i)
		name, opts, skip := jsonField(field)
		if skip {
			continue
		}
		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, field)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if _, exists := s.Properties.Get(name); exists {
			continue
		}
		fs, c := e.build(field.Type, visiting)
		open = append(open, c...)
		if opts.contains("string") && quotable(field.Type) {
			fs = &jsonschema.Schema{Type: "string"}
		}
		s.Properties.Set(name, annotate(fs, field))
		if !optional && field.Type.Kind() != reflect.Pointer {
			*required = append(*required, name)
		}
	}
	for _, field := range embedded {
		ft := field.Type
		opt := optional
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
			opt = true
		}
		open = append(open, e.addFields(s, required, ft, visiting, opt)...)
	}
	return open
}

// annotate applies the description and enum struct tags to a copy of fs.
func annotate(fs *jsonschema.Schema, field reflect.StructField) *jsonschema.Schema {
	desc := field.Tag.Get("description")
	enumTag := field.Tag.Get("enum")
	if desc == "" && enumTag == "" {
		return fs
	}
	cp := *fs
	if desc != "" {
		cp.Description = desc
	}
	if enumTag == "" {
		return &cp
	}
	ft := field.Type
	target := &cp
	if ft.Kind() == reflect.Pointer && len(cp.AnyOf) == 2 {
		inner := *cp.AnyOf[0]
		cp.AnyOf = []*jsonschema.Schema{&inner, cp.AnyOf[1]}
		target = &inner
		ft = ft.Elem()
	}
	if values := parseEnum(enumTag, ft.Kind()); len(values) > 0 {
		target.Enum = values
	}
	return &cp
}

func parseEnum(tag string, kind reflect.Kind) []any {
	parts := strings.Split(tag, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch kind {
		case reflect.String:
			out = append(out, p)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if n, err := strconv.ParseInt(p, 10, 64); err == nil {
				out = append(out, n)
			}
		case reflect.Float32, reflect.Float64:
			if f, err := strconv.ParseFloat(p, 64); err == nil {
				out = append(out, f)
			}
		default:
			return nil
		}
	}
	return out
}

type tagOptions string

func (o tagOptions) contains(name string) bool {
	for opt := range strings.SplitSeq(string(o), ",") {
		if opt == name {
			return true
		}
	}
	return false
}

// jsonField parses the json tag of a field.
func jsonField(field reflect.StructField) (name string, opts tagOptions, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", "", true
	}
	name, rest, _ := strings.Cut(tag, ",")
	return name, tagOptions(rest), false
}

// quotable reports whether the ",string" option applies to t.
func quotable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// implements reports whether T or *T implements iface. Interface types never do:
// their methods cannot be invoked on a zero value.
func implements(t, iface reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// anySchema accepts every value. The empty Extras map keeps invopop from
// marshaling the node as the boolean schema true.
func anySchema() *jsonschema.Schema {
	return &jsonschema.Schema{Extras: map[string]any{}}
}

func nullSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "null"}
}

func implementsValue(t, iface reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Implements(iface)
}
