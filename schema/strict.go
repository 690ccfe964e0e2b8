package schema

import "github.com/invopop/jsonschema"

// Strict returns a deep copy of s in which every object schema lists all of its
// properties as required and forbids additional properties. Optional (pointer) fields
// keep their anyOf-null form, so they stay nullable. s is not modified.
func Strict(s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil {
		return nil
	}
	cp := *s
	if cp.Properties != nil {
		props := jsonschema.NewProperties()
		required := make([]string, 0, cp.Properties.Len())
		for pair := cp.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props.Set(pair.Key, Strict(pair.Value))
			required = append(required, pair.Key)
		}
		cp.Properties = props
		cp.Required = required
		cp.AdditionalProperties = jsonschema.FalseSchema
	} else if cp.AdditionalProperties != nil {
		cp.AdditionalProperties = Strict(cp.AdditionalProperties)
	}
	cp.Items = Strict(cp.Items)
	cp.PrefixItems = strictAll(cp.PrefixItems)
	cp.AnyOf = strictAll(cp.AnyOf)
	cp.OneOf = strictAll(cp.OneOf)
	cp.AllOf = strictAll(cp.AllOf)
	return &cp
}

func strictAll(in []*jsonschema.Schema) []*jsonschema.Schema {
	if in == nil {
		return nil
	}
	out := make([]*jsonschema.Schema, len(in))
	for i, s := range in {
		out[i] = Strict(s)
	}
	return out
}
