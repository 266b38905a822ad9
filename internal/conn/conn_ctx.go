package conn

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
)

// ConnCtx is the state of one client connection. Requests on a connection
// are read and answered one at a time.
type ConnCtx struct {
	Id       uuid.UUID
	conn     *websocket.Conn
	requests int
}

func NewConnCtx(c *websocket.Conn) *ConnCtx {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &ConnCtx{Id: id, conn: c}
}

func (ctx *ConnCtx) Read() ([]byte, error) {
	_, buf, err := ctx.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	ctx.requests++
	return buf, nil
}

func (ctx *ConnCtx) WriteResponse(r protocol.Response) error {
	return ctx.conn.WriteMessage(websocket.TextMessage, r.Marshal())
}

func (ctx *ConnCtx) Close() error { return ctx.conn.Close() }
