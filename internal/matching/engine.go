// Package matching pairs anonymous participants who joined the same
// city and routes signaling between the two sides of each pair.
//
// All state lives in one registry guarded by a single mutex; city
// membership and occupancy are always derived from it, never cached.
// Serializing every operation on that mutex is what makes the pairing
// transition atomic: two concurrent joins can never capture the same
// waiting partner.
package matching

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/metrics"
)

// ErrUnknownConnection is returned when an operation references a
// connection id that is not registered.
var ErrUnknownConnection = errors.New("matching: unknown connection")

// Engine owns the connection registry and the pairing state machine.
// Create one per service with New and inject it into the transport
// layer; instances are fully isolated, which keeps tests hermetic.
type Engine struct {
	log    *slog.Logger
	cities []string
	now    func() time.Time

	mu           sync.Mutex
	participants map[string]*Participant
	order        []string // registration order, the matchmaking tie-break
}

// New creates an empty engine advertising the given city list.
func New(log *slog.Logger, cities []string) *Engine {
	return &Engine{
		log:          log,
		cities:       cities,
		now:          time.Now,
		participants: make(map[string]*Participant),
	}
}

// Register adds a fresh connection in the Unjoined state and sends it
// the advertised city list. Registering an id twice is a no-op.
func (e *Engine) Register(id string, sink EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.participants[id]; ok {
		return
	}
	p := &Participant{ID: id, State: StateUnjoined, sink: sink}
	e.participants[id] = p
	e.order = append(e.order, id)
	metrics.ActiveConnections.Inc()

	e.log.Debug("connection registered", "id", id)
	sink.CityList(e.cities)
}

// Join puts the participant into a city with the given profile and
// immediately tries to pair it. Re-joining overwrites city and profile;
// if the participant was paired, the old pair is dissolved first and
// the vacated partner is notified. Every join broadcasts the city's
// occupancy to all of its members.
func (e *Engine) Join(id, city string, profile Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.participants[id]
	if !ok {
		return ErrUnknownConnection
	}

	if p.State == StatePaired {
		e.dissolveLocked(p)
	}
	p.City = city
	p.Profile = profile
	p.State = StateWaiting
	p.Partner = ""

	e.log.Info("participant joined city", "id", id, "city", city)
	e.tryPairLocked(p, "")
	e.broadcastOccupancyLocked(city)
	return nil
}

// NextPartner dissolves the caller's current pair and re-enters
// matchmaking for the caller only. The vacated partner is notified and
// left waiting; it is not proactively re-matched until its own next
// action. Calls from an unpaired or unknown connection are no-ops.
func (e *Engine) NextPartner(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.participants[id]
	if !ok || p.State != StatePaired {
		return
	}

	e.log.Info("next partner requested", "id", id, "city", p.City)
	prev := p.Partner
	e.dissolveLocked(p)
	// The vacated partner is Waiting again but is not an immediate
	// re-match candidate for the requester.
	if e.tryPairLocked(p, prev) {
		e.broadcastOccupancyLocked(p.City)
	}
}

// Disconnect removes the connection entirely. A paired partner gets a
// PartnerDisconnected notification and returns to Waiting; remaining
// city members get an updated occupancy count. Disconnecting an
// already-removed id is a no-op.
func (e *Engine) Disconnect(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.participants[id]
	if !ok {
		return
	}

	if p.State == StatePaired {
		e.dissolveLocked(p)
	}
	delete(e.participants, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	metrics.ActiveConnections.Dec()

	e.log.Info("connection removed", "id", id, "city", p.City)
	if p.City != "" {
		e.broadcastOccupancyLocked(p.City)
	}
}

// Relay forwards an opaque signaling payload to the sender's current
// partner. The target id supplied by the sender is only used as a
// cross-check: delivery always resolves through the sender's own
// Partner field, and any mismatch, missing sender or missing partner
// makes the call a silent no-op. Teardown races are expected here and
// are not errors.
func (e *Engine) Relay(fromID string, kind SignalKind, targetID string, payload json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.participants[fromID]
	if !ok || p.Partner == "" {
		return
	}
	if targetID != "" && targetID != p.Partner {
		e.log.Debug("signal dropped, stale target", "from", fromID, "target", targetID)
		return
	}
	partner, ok := e.participants[p.Partner]
	if !ok {
		return
	}

	partner.sink.Signal(kind, payload, fromID)
	metrics.SignalsRelayedTotal.WithLabelValues(string(kind)).Inc()
}

// Chat forwards a text message to the sender's current partner,
// stamped with the sender's display name and the wall-clock time.
// No partner means no delivery.
func (e *Engine) Chat(fromID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.participants[fromID]
	if !ok || p.Partner == "" {
		return
	}
	partner, ok := e.participants[p.Partner]
	if !ok {
		return
	}

	partner.sink.ChatMessage(text, p.Profile.Name, e.now().Format("15:04:05"))
	metrics.ChatMessagesTotal.Inc()
}

// Occupancy reports how many participants are currently in a city.
func (e *Engine) Occupancy(city string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countLocked(city)
}

// Cities returns the advertised city list.
func (e *Engine) Cities() []string {
	return e.cities
}

// tryPairLocked scans the sender's city for the first waiting member in
// registration order, excluding the sender itself and the optional
// exclude id, and flips both sides to Paired in place. Returns whether
// a pair formed; if not, the sender is left waiting and told so.
// Callers must hold e.mu.
func (e *Engine) tryPairLocked(p *Participant, exclude string) bool {
	for _, id := range e.order {
		if id == p.ID || (exclude != "" && id == exclude) {
			continue
		}
		cand, ok := e.participants[id]
		if !ok || cand.City != p.City || cand.State != StateWaiting {
			continue
		}

		p.Partner, cand.Partner = cand.ID, p.ID
		p.State, cand.State = StatePaired, StatePaired

		metrics.PairingsTotal.Inc()
		metrics.ActivePairs.Inc()
		e.log.Info("pair formed", "city", p.City, "a", p.ID, "b", cand.ID)

		p.sink.PartnerFound(cand.ID, cand.Profile)
		cand.sink.PartnerFound(p.ID, p.Profile)
		return true
	}

	p.State = StateWaiting
	p.sink.WaitingForPartner()
	return false
}

// dissolveLocked breaks p's pair: the partner is notified, both sides
// drop their references and return to Waiting. Tolerates a partner that
// has already been removed. Callers must hold e.mu.
func (e *Engine) dissolveLocked(p *Participant) {
	if partner, ok := e.participants[p.Partner]; ok {
		partner.Partner = ""
		partner.State = StateWaiting
		partner.sink.PartnerDisconnected()
	}
	p.Partner = ""
	p.State = StateWaiting

	metrics.ActivePairs.Dec()
	metrics.PartnerChurnTotal.Inc()
}

// broadcastOccupancyLocked recomputes the city's member count from the
// registry and pushes it to every member. Callers must hold e.mu.
func (e *Engine) broadcastOccupancyLocked(city string) {
	count := e.countLocked(city)
	for _, p := range e.participants {
		if p.City == city {
			p.sink.CityOccupancy(count)
		}
	}
}

func (e *Engine) countLocked(city string) int {
	n := 0
	for _, p := range e.participants {
		if p.City == city {
			n++
		}
	}
	return n
}
