package routes

import "sync"

// History tracks the client's current location and any navigation forced
// from outside the page flow, such as the sign-out on a 401.
//
// One History serves every request of the client. A forced navigation is
// not tied to the request that caused it: the first caller of TakeRedirect
// receives it and later callers see none.
type History struct {
	mu      sync.Mutex
	current string
	forced  string
}

func NewHistory() *History {
	return &History{current: HomePath}
}

func (h *History) Navigate(path string) {
	path = Clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = path
	h.forced = path
}

func (h *History) Visit(path string) {
	path = Clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = path
}

func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *History) TakeRedirect() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.forced == "" {
		return "", false
	}
	path := h.forced
	h.forced = ""
	return path, true
}
