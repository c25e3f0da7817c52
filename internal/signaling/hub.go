// Package signaling is the websocket layer: it decodes inbound
// envelopes, validates what needs validating at the boundary, and
// hands everything else to the matching engine. It never interprets
// relayed WebRTC payloads.
package signaling

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/matching"
)

// Hub routes decoded client messages into the matching engine and owns
// the boundary concerns the engine must not see: payload decoding,
// profile validation and per-connection rate limits.
type Hub struct {
	log      *slog.Logger
	engine   *matching.Engine
	validate *validator.Validate

	msgRate  rate.Limit
	msgBurst int
}

// NewHub creates a hub over the given engine. msgRate/msgBurst bound
// the inbound message rate per connection.
func NewHub(log *slog.Logger, engine *matching.Engine, msgRate float64, msgBurst int) *Hub {
	return &Hub{
		log:      log,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		msgRate:  rate.Limit(msgRate),
		msgBurst: msgBurst,
	}
}

// Connect registers the client's connection with the engine, which
// immediately sends it the city list.
func (h *Hub) Connect(c *Client) {
	h.engine.Register(c.ID, c)
}

// dropClient removes the participant and closes the outbound channel.
// Called exactly once, from the client's ReadPump exit path; after
// Disconnect returns the engine can no longer emit events to this
// sink, so closing send here is safe.
func (h *Hub) dropClient(c *Client) {
	h.engine.Disconnect(c.ID)
	close(c.send)
}

// dispatch handles one decoded inbound envelope.
func (h *Hub) dispatch(c *Client, env *Envelope) {
	switch env.Type {

	case TypeJoinCity:
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.trySend(newEnvelope(TypeError, errorPayload{Error: "malformed join payload"}))
			return
		}
		if err := h.validate.Struct(p); err != nil {
			h.log.Debug("join rejected", "id", c.ID, "err", err)
			c.trySend(newEnvelope(TypeError, errorPayload{Error: "invalid profile"}))
			return
		}
		profile := matching.Profile{
			Name:   p.UserData.Name,
			Age:    p.UserData.Age,
			Gender: p.UserData.Gender,
		}
		if err := h.engine.Join(c.ID, p.City, profile); err != nil {
			// Unknown connection; the registration raced the close.
			h.log.Debug("join from unregistered connection", "id", c.ID, "err", err)
		}

	case TypeNextPartner:
		h.engine.NextPartner(c.ID)

	case TypeOffer:
		h.relaySignal(c, env, matching.SignalOffer)

	case TypeAnswer:
		h.relaySignal(c, env, matching.SignalAnswer)

	case TypeCandidate:
		h.relaySignal(c, env, matching.SignalCandidate)

	case TypeSendMessage:
		var p messagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Text == "" {
			return
		}
		h.engine.Chat(c.ID, p.Text)

	default:
		h.log.Debug("unknown message type", "id", c.ID, "type", env.Type)
	}
}

// relaySignal extracts the opaque body for the given kind and forwards
// it. Undecodable signal payloads are dropped quietly; peers exchange
// them during teardown races all the time.
func (h *Hub) relaySignal(c *Client, env *Envelope, kind matching.SignalKind) {
	var p signalPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	body := p.SDP
	if kind == matching.SignalCandidate {
		body = p.Candidate
	}
	if len(body) == 0 {
		return
	}
	h.engine.Relay(c.ID, kind, p.Target, body)
}
