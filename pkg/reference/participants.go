package reference

import (
	"sort"
	"sync"

	"github.com/erain9/itchbook/pkg/itch"
)

// Participant is a market participant's status in one instrument.
type Participant struct {
	MPID                   itch.MPID
	Symbol                 itch.Symbol
	PrimaryMarketMaker     bool
	MarketMakerMode        byte
	MarketParticipantState byte
}

type participantKey struct {
	mpid   itch.MPID
	symbol itch.Symbol
}

// ParticipantRegistry keeps the latest position per (MPID, symbol).
type ParticipantRegistry struct {
	mu      sync.RWMutex
	entries map[participantKey]Participant
}

// NewParticipantRegistry creates an empty registry
func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{entries: make(map[participantKey]Participant)}
}

// Upsert stores p, replacing any earlier entry for the same MPID and symbol.
// It reports whether the entry is new.
func (r *ParticipantRegistry) Upsert(p Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := participantKey{mpid: p.MPID, symbol: p.Symbol}
	_, exists := r.entries[k]
	r.entries[k] = p
	return !exists
}

// Get returns the entry for mpid and symbol
func (r *ParticipantRegistry) Get(mpid itch.MPID, symbol itch.Symbol) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[participantKey{mpid: mpid, symbol: symbol}]
	return p, ok
}

// All returns every entry ordered by MPID then symbol
func (r *ParticipantRegistry) All() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Participant, 0, len(r.entries))
	for _, p := range r.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MPID != out[j].MPID {
			return out[i].MPID.String() < out[j].MPID.String()
		}
		return out[i].Symbol.String() < out[j].Symbol.String()
	})
	return out
}

// Len returns the number of entries
func (r *ParticipantRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
