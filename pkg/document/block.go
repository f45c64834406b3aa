// Package document holds the shared canvas state: the feed document
// snapshot and the block table peers mutate through the collaboration
// protocol.
package document

// Position is a block's top-left corner on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a block's rendered dimensions.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block is a data-bound canvas element. ID is stable for the block's
// lifetime; every other field may be overwritten in one atomic replacement
// when a remote mutation arrives.
type Block struct {
	ID       string         `json:"id"`
	Position Position       `json:"position"`
	Size     Size           `json:"size"`
	Binding  string         `json:"bindingExpression"`
	Label    string         `json:"label"`
	Style    map[string]any `json:"style,omitempty"`
	GroupID  string         `json:"groupId,omitempty"`
}
