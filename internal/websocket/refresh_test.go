package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/podcatch/internal/refresh"
)

func dialTestServer(t *testing.T, handler http.HandlerFunc) *gws.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeRefreshForwardsEventsAndCloses(t *testing.T) {
	stream := refresh.NewStream(7, 10)
	stream.Send(refresh.StatusUpdate{Current: 1, Total: 2, Label: "Daily Tech"})
	stream.Send(refresh.ErrorEvent{Message: "boom"})
	stream.Close()

	conn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		ServeRefresh(c, stream)
	})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Contains(t, first, "progress")
	var progress struct {
		Current        uint32 `json:"current"`
		Total          uint32 `json:"total"`
		CurrentPodcast string `json:"current_podcast"`
	}
	require.NoError(t, json.Unmarshal(first["progress"], &progress))
	assert.Equal(t, uint32(1), progress.Current)
	assert.Equal(t, uint32(2), progress.Total)
	assert.Equal(t, "Daily Tech", progress.CurrentPodcast)

	var second map[string]string
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "boom", second["detail"])

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gws.IsCloseError(err, gws.CloseNormalClosure), "got %v", err)
}

func TestServeRefreshDetachesWhenClientLeaves(t *testing.T) {
	stream := refresh.NewStream(7, 10)
	served := make(chan struct{})

	conn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		ServeRefresh(c, stream)
		close(served)
	})
	conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
	conn.Close()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeRefresh did not return after the client left")
	}
	assert.False(t, stream.Send(refresh.StatusUpdate{Label: "late"}))
	assert.Equal(t, 1, stream.Dropped())
}

func TestSendDetailAndClose(t *testing.T) {
	conn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		SendDetailAndClose(c, "Refresh job already running for this user.")
	})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"Refresh job already running for this user."}`, string(data))

	_, _, err = conn.ReadMessage()
	assert.True(t, gws.IsCloseError(err, gws.CloseNormalClosure), "got %v", err)
}
