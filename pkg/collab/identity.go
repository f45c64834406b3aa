package collab

import (
	"hash/fnv"

	"github.com/oklog/ulid/v2"
)

// Identity is the ephemeral per-session identity stamped on every outbound
// envelope. It is an explicit value so tests and callers control it rather
// than depending on hidden random state.
type Identity struct {
	ID    string
	Name  string
	Color string
}

// palette holds the cursor colors assigned to generated identities.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

// NewIdentity generates an identity with a fresh ulid and a color picked
// deterministically from the id.
func NewIdentity(name string) Identity {
	id := ulid.Make().String()
	return Identity{
		ID:    id,
		Name:  name,
		Color: colorFor(id),
	}
}

func colorFor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}
