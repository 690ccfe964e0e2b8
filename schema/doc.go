// Package schema derives JSON Schema documents from Go types.
//
// The engine walks a reflect.Type and composes a *jsonschema.Schema
// (github.com/invopop/jsonschema) for the closed set of shapes tools exchange:
//
//   - bool, integers, floats, strings          → {"type": <json type>}
//   - *T (optional)                            → {"anyOf": [T, {"type": "null"}]}
//   - []T                                      → {"type": "array", "items": T}
//   - [N]T                                     → {"type": "array", "items": T, "minItems": N, "maxItems": N}
//   - map[string]T                             → {"type": "object", "additionalProperties": T}
//   - Pair, Triple (Tuple)                     → {"type": "array", "prefixItems": [...], "minItems": n, "maxItems": n}
//   - Newtype[T]                               → one-element tuple, never collapsed to T
//   - struct                                   → {"type": "object", "properties": {...}, "required": [...]}
//   - Void                                     → {"type": "null"}
//
// Struct fields follow encoding/json naming rules. Pointer fields are optional and
// left out of "required". The description and enum struct tags annotate properties:
//
//	type Args struct {
//	    City string  `json:"city" description:"City name"`
//	    Unit *string `json:"unit" enum:"celsius,fahrenheit"`
//	}
//
// Schemas are memoized per type. Returned nodes are shared; callers must not mutate them.
package schema
