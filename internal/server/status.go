package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/agbru/fibsum/internal/orchestration"
)

// RankStatus is the latest phase reached by one rank in one role.
type RankStatus struct {
	Rank    int       `json:"rank"`
	Role    string    `json:"role"`
	Phase   string    `json:"phase"`
	Updated time.Time `json:"updated"`
}

type statusKey struct {
	rank int
	role orchestration.Role
}

// Status records lifecycle transitions. It is safe for concurrent use by
// every rank of a run.
type Status struct {
	mu     sync.RWMutex
	ranks  map[statusKey]RankStatus
	now    func() time.Time
	events int
}

// NewStatus creates an empty status board.
func NewStatus() *Status {
	return &Status{ranks: make(map[statusKey]RankStatus), now: time.Now}
}

var _ orchestration.PhaseObserver = (*Status)(nil)

// OnPhase implements orchestration.PhaseObserver.
func (s *Status) OnPhase(e orchestration.PhaseEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++
	s.ranks[statusKey{e.Rank, e.Role}] = RankStatus{
		Rank:    e.Rank,
		Role:    e.Role.String(),
		Phase:   e.Phase.String(),
		Updated: s.now(),
	}
}

// Snapshot returns the status of every rank, ordered by rank then role.
func (s *Status) Snapshot() []RankStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RankStatus, 0, len(s.ranks))
	for _, st := range s.ranks {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// ServeHTTP writes the snapshot as JSON.
func (s *Status) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Events int          `json:"events"`
		Ranks  []RankStatus `json:"ranks"`
	}{events, s.Snapshot()})
}
