package relation

import "github.com/roach88/halodb/internal/graph"

// visited tracks halos already expanded during one traversal.
//
// A traversal never expands the same halo twice, so a cyclic catalog
// cannot make it loop. Not safe for concurrent use; each traversal owns one.
type visited struct {
	seen map[graph.HaloID]struct{}
}

func newVisited(start ...graph.HaloID) *visited {
	v := &visited{seen: make(map[graph.HaloID]struct{}, len(start))}
	for _, id := range start {
		v.add(id)
	}
	return v
}

// has reports whether id has already been expanded.
func (v *visited) has(id graph.HaloID) bool {
	_, ok := v.seen[id]
	return ok
}

// add marks id as expanded.
func (v *visited) add(id graph.HaloID) {
	v.seen[id] = struct{}{}
}

func (v *visited) size() int {
	return len(v.seen)
}
