package matching

import "encoding/json"

// State tracks where a participant is in its session lifecycle.
type State int

const (
	// StateUnjoined means the connection is registered but has not picked a city yet.
	StateUnjoined State = iota

	// StateWaiting means the participant is in a city, waiting for a partner.
	StateWaiting

	// StatePaired means the participant has a live partner.
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}

// Profile is the self-declared user data sent with a join request.
// It is immutable for the lifetime of a city membership; a re-join
// overwrites it wholesale. Validation happens at the transport
// boundary, the engine assumes profiles are well formed.
type Profile struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// SignalKind tags a relayed session-establishment message. The engine
// forwards by tag only and never looks inside the payload.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Participant is one live connection and its matching state.
//
// PartnerID is a weak reference: it is only ever resolved through the
// engine's registry, never held as a pointer, so a disconnected partner
// simply fails the lookup. PartnerID is non-empty iff State == StatePaired,
// and is always symmetric between the two sides of a pair.
type Participant struct {
	ID      string
	Profile Profile
	City    string
	Partner string
	State   State

	sink EventSink
}

// EventSink receives the outbound events for a single participant.
// Every call is fire-and-forget: implementations must never block,
// since the engine invokes them while holding its lock. The websocket
// layer backs this with a buffered channel and drops on overflow.
type EventSink interface {
	// CityList is sent once, right after the connection registers.
	CityList(cities []string)

	// WaitingForPartner tells the participant nobody was available.
	WaitingForPartner()

	// PartnerFound announces a successful pairing.
	PartnerFound(partnerID string, partner Profile)

	// CityOccupancy reports the current member count of the city.
	CityOccupancy(count int)

	// Signal delivers a relayed offer/answer/candidate payload verbatim.
	Signal(kind SignalKind, payload json.RawMessage, senderID string)

	// PartnerDisconnected tells the participant its pair was dissolved.
	PartnerDisconnected()

	// ChatMessage delivers a text message from the current partner.
	ChatMessage(text, sender, timestamp string)
}
