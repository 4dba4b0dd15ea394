package domain

// Edge is a directed dependency from an upstream resource to its dependent
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// NewEdge creates an edge with its deterministic id
func NewEdge(source, target string) Edge {
	return Edge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
	}
}

// EdgeID returns "source->target"
func EdgeID(source, target string) string {
	return source + "->" + target
}
