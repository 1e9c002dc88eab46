package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wisepicks/internal/cache"
	"github.com/magabrotheeeer/wisepicks/internal/config"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(newNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("message not received")
		return nil
	}
}

func TestHub_SendToUserAndBroadcast(t *testing.T) {
	hub := startHub(t)

	alice1 := &Client{UserID: "alice", send: make(chan []byte, 4)}
	alice2 := &Client{UserID: "alice", send: make(chan []byte, 4)}
	bob := &Client{UserID: "bob", send: make(chan []byte, 4)}
	for _, c := range []*Client{alice1, alice2, bob} {
		require.True(t, hub.Register(c))
	}

	require.True(t, hub.SendToUser("alice", []byte("hi alice")))
	assert.Equal(t, "hi alice", string(receive(t, alice1.send)))
	assert.Equal(t, "hi alice", string(receive(t, alice2.send)))

	require.True(t, hub.Broadcast([]byte("all")))
	assert.Equal(t, "all", string(receive(t, alice1.send)))
	assert.Equal(t, "all", string(receive(t, alice2.send)))
	assert.Equal(t, "all", string(receive(t, bob.send)))

	assert.Empty(t, bob.send, "bob must not get alice's message")
	assert.False(t, hub.SendToUser("", []byte("x")))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	c := &Client{UserID: "u", send: make(chan []byte, 1)}
	require.True(t, hub.Register(c))
	hub.Unregister(c)

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// повторная дерегистрация не паникует
	hub.Unregister(c)
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := startHub(t)

	slow := &Client{UserID: "slow", send: make(chan []byte, 1)}
	require.True(t, hub.Register(slow))

	hub.SendToUser("slow", []byte("first"))
	hub.SendToUser("slow", []byte("second"))

	assert.Equal(t, "first", string(receive(t, slow.send)))
	select {
	case msg := <-slow.send:
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_StoppedRejectsRegistration(t *testing.T) {
	hub := NewHub(newNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	assert.False(t, hub.Register(&Client{UserID: "late", send: make(chan []byte, 1)}))
	assert.False(t, hub.Broadcast([]byte("x")))
}

type fakeAuth struct{}

func (fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "good" {
		return &models.User{ID: "user-1"}, nil
	}
	return nil, errors.New("bad token")
}

func TestHandler_DeliversEvents(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(NewHandler(newNoopLogger(), hub, fakeAuth{}, ""))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.SendToUser("user-1", []byte(`{"type":"new-notification"}`))
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"new-notification"}`, string(msg))
}

func TestHandler_RejectsWithoutToken(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(NewHandler(newNoopLogger(), hub, fakeAuth{}, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=bad"
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBridge_RoutesRedisMessages(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	hub := startHub(t)
	alice := &Client{UserID: "alice", send: make(chan []byte, 4)}
	bob := &Client{UserID: "bob", send: make(chan []byte, 4)}
	require.True(t, hub.Register(alice))
	require.True(t, hub.Register(bob))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewBridge(newNoopLogger(), c, hub).Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := c.Db.PubSubNumPat(ctx).Result()
		return err == nil && n > 0
	}, 2*time.Second, 10*time.Millisecond)

	pub := NewRedisPublisher(c)
	require.NoError(t, pub.ToUser(ctx, "alice", models.RealtimeEvent{Type: models.EventPremiumStatusUpdated}))

	var ev models.RealtimeEvent
	require.NoError(t, json.Unmarshal(receive(t, alice.send), &ev))
	assert.Equal(t, models.EventPremiumStatusUpdated, ev.Type)

	require.NoError(t, pub.Broadcast(ctx, models.RealtimeEvent{Type: models.EventDeleteTip, Payload: map[string]int64{"id": 7}}))
	require.NoError(t, json.Unmarshal(receive(t, bob.send), &ev))
	assert.Equal(t, models.EventDeleteTip, ev.Type)
	receive(t, alice.send)
}
