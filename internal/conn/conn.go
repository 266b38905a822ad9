package conn

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"google.golang.org/grpc/codes"
)

var Upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	c, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		pkg.ErrorLog("upgrading connection", err)
		return
	}
	ctx := NewConnCtx(c)
	if !s.track(ctx) {
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		c.Close()
		return
	}
	defer s.untrack(ctx)
	defer ctx.Close()

	pkg.InfoLog("new connection", ctx.Id, "from", r.RemoteAddr)
	defer func() { pkg.InfoLog("connection closed", ctx.Id, "after", ctx.requests, "requests") }()

	for {
		buf, err := ctx.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pkg.ErrorLog("unexpected close", ctx.Id, err)
			} else {
				pkg.DebugLog("connection read ended", ctx.Id, err)
			}
			return
		}

		var req protocol.Request
		var res protocol.Response
		if err := json.Unmarshal(buf, &req); err != nil {
			pkg.ErrorLog("parsing request", ctx.Id, err)
			res = protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
		} else {
			pkg.DebugLog(ctx.Id, "action", req.Action)
			res = ActionHandler(s, req.Action, buf)
			res.ReqID = req.ReqID
		}

		if res.Code != codes.OK {
			pkg.DebugLog(ctx.Id, req.Action, "failed:", res.Code, res.Message)
		}
		if err := ctx.WriteResponse(res); err != nil {
			pkg.ErrorLog("writing response", ctx.Id, err)
			return
		}
	}
}
