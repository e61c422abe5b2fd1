package lobby

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Filter narrows a lobby listing. Zero values mean "no constraint".
type Filter struct {
	// Query is matched case-insensitively against creator and player
	// display names.
	Query    string
	MaxWager *decimal.Decimal
	Capacity int
}

func (l *Lobby) anyNameContainsLocked(query string) bool {
	q := strings.ToLower(query)
	for _, p := range l.Players {
		if strings.Contains(strings.ToLower(p.DisplayName), q) {
			return true
		}
	}
	return false
}

// Registry owns lobby identity and lifetime: it assigns monotonic IDs and
// is the only place lobbies are added or removed.
type Registry struct {
	mu      sync.Mutex
	nextID  int64
	lobbies map[int64]*Lobby
}

func NewRegistry() *Registry {
	return &Registry{
		nextID:  1,
		lobbies: make(map[int64]*Lobby),
	}
}

// add stores the lobby under a freshly assigned ID.
func (r *Registry) add(l *Lobby) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.nextID
	r.nextID++
	r.lobbies[l.ID] = l
}

// get retrieves a lobby if it exists.
func (r *Registry) get(id int64) (*Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[id]
	return l, ok
}

// remove deletes a lobby. Idempotent.
func (r *Registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbies, id)
}

// all returns the current lobbies in creation order. The slice is a private
// copy; the lobbies themselves still need their own locks.
func (r *Registry) all() []*Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
