// README: Recent-address history and suggestions.
package geocode

import (
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	historyLimit     = 20
	suggestLimit     = 5
	suggestMinLength = 2
)

// History keeps recently used addresses, most recent first.
type History struct {
	mu    sync.Mutex
	items []string
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Remember(addr string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]string, 0, len(h.items)+1)
	items = append(items, addr)
	for _, it := range h.items {
		if !strings.EqualFold(it, addr) {
			items = append(items, it)
		}
	}
	if len(items) > historyLimit {
		items = items[:historyLimit]
	}
	h.items = items
}

func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.items...)
}

// Suggest filters history then the known address list by case-insensitive substring.
func Suggest(query string, history []string) []string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < suggestMinLength {
		return []string{}
	}
	q := strings.ToLower(query)

	out := make([]string, 0, suggestLimit)
	seen := make(map[string]struct{})
	add := func(candidates []string) {
		for _, c := range candidates {
			if len(out) == suggestLimit {
				return
			}
			key := strings.ToLower(c)
			if _, ok := seen[key]; ok || !strings.Contains(key, q) {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	add(history)
	add(knownAddresses)
	return out
}
