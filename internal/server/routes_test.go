package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/app"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/matching"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/signaling"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := app.Config{
		Env:          "test",
		CORSAllow:    []string{"*"},
		Cities:       []string{"Москва"},
		MessageRate:  100,
		MessageBurst: 100,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := matching.New(log, cfg.Cities)
	hub := signaling.NewHub(log, engine, cfg.MessageRate, cfg.MessageBurst)

	ts := httptest.NewServer(NewRouter(cfg, log, hub))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) signaling.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env signaling.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectType(t *testing.T, conn *websocket.Conn, typ string) signaling.Envelope {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, typ, env.Type)
	return env
}

func join(t *testing.T, conn *websocket.Conn, name string, age int, gender string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": signaling.TypeJoinCity,
		"payload": map[string]any{
			"city": "Москва",
			"userData": map[string]any{
				"name": name, "age": age, "gender": gender,
			},
		},
	}))
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Signaling server is healthy.", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "datingchat_active_connections")
}

func TestPairLifecycleOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	// X connects and joins an empty city.
	x := dial(t, ts)
	expectType(t, x, signaling.TypeCityList)
	join(t, x, "Ann", 25, "f")
	expectType(t, x, signaling.TypeWaiting)
	env := expectType(t, x, signaling.TypeUsersInRoom)
	require.Equal(t, "1", string(env.Payload))

	// Y connects, joins, both sides get matched.
	y := dial(t, ts)
	expectType(t, y, signaling.TypeCityList)
	join(t, y, "Bob", 30, "m")

	var foundX, foundY struct {
		PartnerID   string `json:"partnerId"`
		PartnerData struct {
			Name   string `json:"name"`
			Age    int    `json:"age"`
			Gender string `json:"gender"`
		} `json:"partnerData"`
	}
	env = expectType(t, x, signaling.TypePartnerFound)
	require.NoError(t, json.Unmarshal(env.Payload, &foundX))
	require.Equal(t, "Bob", foundX.PartnerData.Name)
	require.Equal(t, 30, foundX.PartnerData.Age)

	env = expectType(t, y, signaling.TypePartnerFound)
	require.NoError(t, json.Unmarshal(env.Payload, &foundY))
	require.Equal(t, "Ann", foundY.PartnerData.Name)

	env = expectType(t, x, signaling.TypeUsersInRoom)
	require.Equal(t, "2", string(env.Payload))
	env = expectType(t, y, signaling.TypeUsersInRoom)
	require.Equal(t, "2", string(env.Payload))

	// X offers, Y receives it verbatim with the sender id attached.
	require.NoError(t, x.WriteJSON(map[string]any{
		"type": signaling.TypeOffer,
		"payload": map[string]any{
			"target": foundX.PartnerID,
			"sdp":    map[string]string{"type": "offer", "sdp": "v=0"},
		},
	}))
	env = expectType(t, y, signaling.TypeOffer)
	require.JSONEq(t,
		fmt.Sprintf(`{"sdp":{"type":"offer","sdp":"v=0"},"sender":%q}`, foundY.PartnerID),
		string(env.Payload))

	// Chat rides the same pair.
	require.NoError(t, x.WriteJSON(map[string]any{
		"type":    signaling.TypeSendMessage,
		"payload": map[string]string{"text": "привет"},
	}))
	env = expectType(t, y, signaling.TypeNewMessage)
	var msg struct {
		Text      string `json:"text"`
		Sender    string `json:"sender"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	require.Equal(t, "привет", msg.Text)
	require.Equal(t, "Ann", msg.Sender)
	require.NotEmpty(t, msg.Timestamp)

	// X moves on: Y is told, X waits (nobody else in the city).
	require.NoError(t, x.WriteJSON(map[string]any{"type": signaling.TypeNextPartner}))
	expectType(t, y, signaling.TypePartnerDisconnected)
	expectType(t, x, signaling.TypeWaiting)

	// Y's transport closes; X sees the occupancy drop.
	y.Close()
	env = expectType(t, x, signaling.TypeUsersInRoom)
	require.Equal(t, "1", string(env.Payload))

	// A new joiner is matched with X, never with the departed Y.
	z := dial(t, ts)
	expectType(t, z, signaling.TypeCityList)
	join(t, z, "Cat", 28, "f")

	env = expectType(t, x, signaling.TypePartnerFound)
	require.NoError(t, json.Unmarshal(env.Payload, &foundX))
	require.Equal(t, "Cat", foundX.PartnerData.Name)
	env = expectType(t, z, signaling.TypePartnerFound)
	require.NoError(t, json.Unmarshal(env.Payload, &foundY))
	require.Equal(t, "Ann", foundY.PartnerData.Name)
}

func TestJoinRejectedOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	c := dial(t, ts)
	expectType(t, c, signaling.TypeCityList)

	join(t, c, "Kid", 12, "m")
	env := expectType(t, c, signaling.TypeError)
	require.JSONEq(t, `{"error":"invalid profile"}`, string(env.Payload))
}
