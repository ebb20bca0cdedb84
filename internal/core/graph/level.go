package graph

// Level is a thin semantic layer over Graph used to represent a gameplay
// partition. It keeps the full graph surface and adds spawn conveniences.
type Level struct {
	*Graph
}

// NewLevel returns a level backed by a fresh graph.
func NewLevel(name string, opts ...Option) *Level {
	return &Level{Graph: New(name, opts...)}
}

// Spawn creates a named root node.
func (l *Level) Spawn(name string) (NodeHandle, error) {
	return l.CreateNode(name)
}

// SpawnChild creates a named node attached under parent. The node is rolled
// back when attachment fails.
func (l *Level) SpawnChild(parent NodeHandle, name string) (NodeHandle, error) {
	h, err := l.CreateNode(name)
	if err != nil {
		return NullNodeHandle, err
	}
	if err := l.AttachChild(parent, h); err != nil {
		_ = l.DestroyNode(h)
		return NullNodeHandle, err
	}
	return h, nil
}
