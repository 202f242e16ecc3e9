package properties

import (
	"fmt"
	"strings"
)

// Handler names a simulation output format. Handlers form a tree rooted at
// Output: a provider that works with a handler works with all of its
// descendants.
type Handler string

const (
	// NoHandler asks for providers that need no raw data.
	NoHandler Handler = ""
	Output    Handler = "output"
	Pynbody   Handler = "pynbody"
	YT        Handler = "yt"
)

// Handlers maps each handler to its parent.
var Handlers = map[Handler]Handler{
	Output:  NoHandler,
	Pynbody: Output,
	YT:      Output,
}

// ParseHandler accepts a known handler name. The empty string is NoHandler.
func ParseHandler(s string) (Handler, error) {
	h := Handler(strings.ToLower(strings.TrimSpace(s)))
	if h == NoHandler {
		return h, nil
	}
	if _, ok := Handlers[h]; !ok {
		return "", fmt.Errorf("unknown output handler %q", s)
	}
	return h, nil
}

// Depth is the distance from the root; Output is 1.
func (h Handler) Depth() int {
	d := 0
	for cur := h; cur != NoHandler; cur = Handlers[cur] {
		d++
	}
	return d
}

// Within reports whether h is ancestor or h itself.
func (h Handler) Within(ancestor Handler) bool {
	for cur := h; cur != NoHandler; cur = Handlers[cur] {
		if cur == ancestor {
			return true
		}
	}
	return false
}
