package toolbox

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Declaration describes one tool to a model: its name, doc string and the schemas of
// its arguments and result. Parameters is null when schemas are disabled.
type Declaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Returns     *jsonschema.Schema `json:"returns,omitempty"`
}

// Declarations returns one Declaration per registered tool, sorted by name. It is built
// from the live registry on every call; the per-type schema cache makes that cheap.
func (r *Registry) Declarations() []Declaration {
	tools := r.Tools()
	out := make([]Declaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, Declaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
			Returns:     t.Returns(),
		})
	}
	return out
}

// DeclarationsJSON returns Declarations as a single JSON array.
func (r *Registry) DeclarationsJSON() (json.RawMessage, error) {
	b, err := json.Marshal(r.Declarations())
	if err != nil {
		return nil, &ToolError{Kind: KindSerialization, Message: err.Error(), Err: err}
	}
	return b, nil
}
