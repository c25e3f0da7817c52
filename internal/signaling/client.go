package signaling

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/matching"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	// Outbound buffer; a consumer that falls further behind than this
	// starts losing best-effort events.
	sendBuffer = 256
)

// Client is a wrapper for a single websocket connection (a peer).
// It is also the matching.EventSink for its participant: outbound
// events are marshaled into envelopes and queued on the send channel
// without ever blocking the engine.
type Client struct {
	// ID is the connection id, assigned at upgrade time and used as
	// the participant id for the connection's whole lifetime.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// limiter caps inbound message rate; a flooding peer only takes
	// down its own connection.
	limiter *rate.Limiter

	// send is the buffered channel of outbound envelopes. A separate
	// goroutine (WritePump) drains it onto the websocket.
	send chan *Envelope
}

// NewClient wraps an upgraded websocket connection with a fresh
// connection id.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		limiter: rate.NewLimiter(hub.msgRate, hub.msgBurst),
		send:    make(chan *Envelope, sendBuffer),
	}
}

// ReadPump pumps messages from the websocket connection into the hub.
//
// The application runs ReadPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection
// by executing all reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (connection closed or flooding), the
	// participant is disconnected and the send channel closed.
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read failed", "id", c.ID, "err", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.hub.log.Warn("inbound rate limit exceeded, dropping connection", "id", c.ID)
			break
		}

		c.hub.dispatch(c, &env)
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection
// by executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.hub.log.Debug("websocket write failed", "id", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues an envelope without blocking. Events to a consumer
// whose buffer is full are dropped; all outbound traffic is
// best-effort with no delivery guarantee.
func (c *Client) trySend(env *Envelope) {
	select {
	case c.send <- env:
	default:
	}
}

// matching.EventSink implementation. Every method below is called by
// the engine while it holds its lock, so none of them may block.

func (c *Client) CityList(cities []string) {
	c.trySend(newEnvelope(TypeCityList, cities))
}

func (c *Client) WaitingForPartner() {
	c.trySend(newEnvelope(TypeWaiting, nil))
}

func (c *Client) PartnerFound(partnerID string, partner matching.Profile) {
	c.trySend(newEnvelope(TypePartnerFound, partnerFoundPayload{
		PartnerID: partnerID,
		PartnerData: partnerDataPayload{
			Name:   partner.Name,
			Age:    partner.Age,
			Gender: partner.Gender,
		},
	}))
}

func (c *Client) CityOccupancy(count int) {
	c.trySend(newEnvelope(TypeUsersInRoom, count))
}

func (c *Client) Signal(kind matching.SignalKind, payload json.RawMessage, senderID string) {
	switch kind {
	case matching.SignalOffer:
		c.trySend(newEnvelope(TypeOffer, sdpOut{SDP: payload, Sender: senderID}))
	case matching.SignalAnswer:
		c.trySend(newEnvelope(TypeAnswer, sdpOut{SDP: payload, Sender: senderID}))
	case matching.SignalCandidate:
		c.trySend(newEnvelope(TypeCandidate, candidateOut{Candidate: payload, Sender: senderID}))
	}
}

func (c *Client) PartnerDisconnected() {
	c.trySend(newEnvelope(TypePartnerDisconnected, nil))
}

func (c *Client) ChatMessage(text, sender, timestamp string) {
	c.trySend(newEnvelope(TypeNewMessage, newMessagePayload{
		Text:      text,
		Sender:    sender,
		Timestamp: timestamp,
	}))
}
