// Package dashboardui serves the optional live dashboard: a Gin HTTP server
// exposing the current state snapshot, a Server-Sent Events stream of trace
// lines, and a health check, fed from trace.Observer rather than a
// database.
package dashboardui

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/collabora/vsm/internal/vsmvalue"
)

// StateSnapshot is supplied by the caller on every /state request.
type StateSnapshot func() map[string]vsmvalue.Value

// Server is a trace.Observer that also serves the dashboard's HTTP routes.
type Server struct {
	addr     string
	snapshot StateSnapshot

	mu    sync.Mutex
	subs  map[chan string]struct{}
}

// New builds a Server listening on addr (e.g. ":8080"); snapshot supplies
// the /state endpoint's current signal values.
func New(addr string, snapshot StateSnapshot) *Server {
	return &Server{
		addr:     addr,
		snapshot: snapshot,
		subs:     make(map[chan string]struct{}),
	}
}

// Observe implements trace.Observer, fanning each trace line out to every
// connected /events subscriber. A saturated subscriber channel drops the
// line rather than block the engine.
func (s *Server) Observe(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/state", s.handleState)
	router.GET("/events", s.handleEvents)

	srv := &http.Server{Addr: s.addr, Handler: router}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboardui: %w", err)
	}
	return nil
}

func (s *Server) handleState(c *gin.Context) {
	out := make(map[string]string)
	for name, v := range s.snapshot() {
		out[name] = v.Literal()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := make(chan string, 256)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}()

	writeSSE(c, "connected", "")
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-ch:
			writeSSE(c, "trace", line)
			c.Writer.Flush()
		}
	}
}

func writeSSE(c *gin.Context, event, data string) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
}
