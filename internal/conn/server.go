package conn

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	Locker   sync.RWMutex
	Registry *registry.Registry
	Version  string

	// open websocket connections, closed on shutdown
	conns   pkg.Map[uuid.UUID, *ConnCtx]
	closing bool
}

func NewServer(reg *registry.Registry, version string) *Server {
	return &Server{Registry: reg, Version: version, conns: pkg.Map[uuid.UUID, *ConnCtx]{}}
}

func (s *Server) GetLocker() *sync.RWMutex { return &s.Locker }

func (s *Server) track(ctx *ConnCtx) bool {
	ok := true
	pkg.LockWrap(s, func() {
		if s.closing {
			ok = false
			return
		}
		s.conns.Set(ctx.Id, ctx)
	})
	return ok
}

func (s *Server) untrack(ctx *ConnCtx) {
	pkg.LockWrap(s, func() { s.conns.Delete(ctx.Id) })
}

// ConnCount is the number of open client connections.
func (s *Server) ConnCount() int {
	return pkg.RLockGet(s, func() int { return len(s.conns) })
}

func (s *Server) closeConns() {
	pkg.LockWrap(s, func() {
		s.closing = true
		for _, ctx := range s.conns {
			ctx.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			ctx.Close()
		}
	})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.HandleConnection)
	return mux
}

// Serve accepts connections on l until ctx is done. The registry is
// flushed to disk before Serve returns.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.closeConns)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pkg.InfoLog("sqlanalyzer listening on", l.Addr())
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return s.Registry.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		pkg.DebugLog("Shutting down...")
		shutdown_ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdown_ctx)
	})
	return g.Wait()
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}
