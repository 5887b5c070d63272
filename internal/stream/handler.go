package stream

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade promotes an HTTP request to a websocket connection and wraps it
// in a Client, grounded on the teacher's websocket.Handler.ServeHTTP --
// authentication itself happens one layer up via api.RequireAuth, so this
// only performs the protocol upgrade and client construction.
func Upgrade(hub *Hub, w http.ResponseWriter, r *http.Request) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewClient(uuid.New().String(), hub, conn), nil
}
