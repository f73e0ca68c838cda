package websocket

import (
	"log"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/vrsandeep/podcatch/internal/refresh"
)

// ServeRefresh forwards the events of one refresh run to conn as JSON text
// frames and closes the connection when the stream ends. If the client goes
// away first the stream is detached and the run carries on without it.
// Inbound messages are read and ignored.
func ServeRefresh(conn *gws.Conn, stream *refresh.Stream) {
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-stream.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("websocket: refresh for user %d: write failed, detaching: %v", stream.UserID(), err)
				stream.Detach()
				return
			}
		case <-gone:
			stream.Detach()
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gws.PingMessage, nil); err != nil {
				stream.Detach()
				return
			}
		}
	}
}

// SendDetailAndClose writes a single {"detail": message} frame and closes
// the connection.
func SendDetailAndClose(conn *gws.Conn, message string) {
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(refresh.ErrorEvent{Message: message}); err != nil {
		return
	}
	conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
}
