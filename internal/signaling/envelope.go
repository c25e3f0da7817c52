package signaling

import "encoding/json"

// Envelope is the structure of every C2S (client to server) and
// S2C (server to client) websocket message. The payload shape depends
// on the type; relayed WebRTC payloads pass through unexamined.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types.
const (
	TypeJoinCity    = "join-city"
	TypeNextPartner = "next-partner"
	TypeSendMessage = "send-message"
)

// Relayed WebRTC signal types, same on both directions.
const (
	TypeOffer     = "webrtc-offer"
	TypeAnswer    = "webrtc-answer"
	TypeCandidate = "ice-candidate"
)

// Outbound message types.
const (
	TypeCityList            = "cities-list"
	TypeWaiting             = "waiting-for-partner"
	TypePartnerFound        = "partner-found"
	TypeUsersInRoom         = "users-in-room"
	TypeNewMessage          = "new-message"
	TypePartnerDisconnected = "partner-disconnected"
	TypeError               = "error"
)

// joinPayload carries the city plus the self-declared user data.
// This is the only place profile validation happens; past this
// boundary the matching engine trusts the profile.
type joinPayload struct {
	City     string `json:"city" validate:"required,max=64"`
	UserData struct {
		Name   string `json:"name" validate:"required,max=64"`
		Age    int    `json:"age" validate:"gte=18,lte=99"`
		Gender string `json:"gender" validate:"required"`
	} `json:"userData"`
}

// signalPayload is the inbound shape of all three WebRTC signal types.
// SDP and Candidate stay raw: the server relays, it does not parse.
type signalPayload struct {
	Target    string          `json:"target,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// sdpOut and candidateOut are the relayed payloads with the sender id
// attached, so the receiving peer knows whom to answer.
type sdpOut struct {
	SDP    json.RawMessage `json:"sdp"`
	Sender string          `json:"sender"`
}

type candidateOut struct {
	Candidate json.RawMessage `json:"candidate"`
	Sender    string          `json:"sender"`
}

type messagePayload struct {
	Text string `json:"text"`
}

type newMessagePayload struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

type partnerFoundPayload struct {
	PartnerID   string             `json:"partnerId"`
	PartnerData partnerDataPayload `json:"partnerData"`
}

type partnerDataPayload struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// newEnvelope marshals v into an envelope of the given type. A nil v
// produces an envelope with no payload.
func newEnvelope(typ string, v any) *Envelope {
	env := &Envelope{Type: typ}
	if v != nil {
		b, _ := json.Marshal(v)
		env.Payload = b
	}
	return env
}
