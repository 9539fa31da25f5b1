package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

var testUpgrader = websocket.Upgrader{}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSDeliversAndControls(t *testing.T) {
	received := make(chan controlMessage, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		err = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"odds_snapshot","fixture_id":42,"timestamp":100,"start":90,"end":110,"odds":[{"bookie":"Pinnacle","decimals":3}]}`))
		require.NoError(t, err)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl controlMessage
			if err := sonic.Unmarshal(raw, &ctrl); err == nil {
				received <- ctrl
			}
		}
	}))
	defer server.Close()

	dialer := NewWSDialer(wsURL(server), logging.NewNop())
	stream, err := dialer.DialMonitor(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	select {
	case msg := <-stream.Messages():
		require.Equal(t, "odds_snapshot", msg.Type)
		require.Equal(t, int64(42), msg.FixtureID)
		require.Equal(t, int64(90), msg.Start)
		require.Equal(t, int64(110), msg.End)
		require.Equal(t, "Pinnacle", msg.Bookmakers[0].Bookie)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	filter := &odds.Filter{Field: "league_id", Op: "eq", Value: float64(39)}
	require.NoError(t, stream.Subscribe(filter))
	replacement := &odds.Filter{Field: "league_id", Op: "eq", Value: float64(61)}
	require.NoError(t, stream.Subscribe(replacement))
	require.NoError(t, stream.RemoveFilter())

	ctrl := <-received
	require.Equal(t, controlSubscribe, ctrl.Type, "first filter rides the subscribe frame")
	require.NotNil(t, ctrl.Filter)
	require.Equal(t, "league_id", ctrl.Filter.Field)

	ctrl = <-received
	require.Equal(t, controlUpdateFilter, ctrl.Type, "later filters are updates")
	require.NotNil(t, ctrl.Filter)
	require.Equal(t, float64(61), ctrl.Filter.Value)

	ctrl = <-received
	require.Equal(t, controlRemoveFilter, ctrl.Type)
	require.Nil(t, ctrl.Filter)
}

func TestWSSubscribeWithoutFilter(t *testing.T) {
	received := make(chan controlMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ctrl controlMessage
		require.NoError(t, sonic.Unmarshal(raw, &ctrl))
		received <- ctrl
		<-r.Context().Done()
	}))
	defer server.Close()

	stream, err := NewWSDialer(wsURL(server), logging.NewNop()).DialMonitor(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Subscribe(nil))
	ctrl := <-received
	require.Equal(t, controlSubscribe, ctrl.Type)
}

func TestWSServerDropSetsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer server.Close()

	stream, err := NewWSDialer(wsURL(server), logging.NewNop()).DialMonitor(context.Background())
	require.NoError(t, err)

	select {
	case _, ok := <-stream.Messages():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("message channel did not close")
	}
	require.Error(t, stream.Err(), "an abrupt drop must surface as an error")
}

func TestWSDialFailure(t *testing.T) {
	_, err := NewWSDialer("ws://127.0.0.1:1", logging.NewNop()).DialMonitor(context.Background())
	require.Error(t, err)
}
