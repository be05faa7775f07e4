// Package http exposes an Engine over a small REST API: start a process
// instance, complete a waiting task, and query instance status.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/sethdford/process-engine/engine"
)

// NewRouter builds the httprouter.Router backing the REST API for e.
func NewRouter(e *engine.Engine) *httprouter.Router {
	h := &handler{engine: e}

	router := httprouter.New()
	router.OPTIONS("/process/start", handleOptions)
	router.POST("/process/start", h.startProcess)

	router.OPTIONS("/process/:id", handleOptions)
	router.GET("/process/:id", h.getProcess)

	router.OPTIONS("/process/:id/task/:taskId/complete", handleOptions)
	router.POST("/process/:id/task/:taskId/complete", h.completeTask)

	router.OPTIONS("/process/:id/task/by-name/:taskName/complete", handleOptions)
	router.POST("/process/:id/task/by-name/:taskName/complete", h.completeTaskByName)

	router.OPTIONS("/status", handleOptions)
	router.GET("/status", h.status)

	return router
}

func handleOptions(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Add("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "*")
	w.Header().Add("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")
}

// NewServer creates a Server serving router on addr. An empty addr
// falls back to ":http" in Start.
func NewServer(addr string, router *httprouter.Router) *Server {
	return &Server{Server: &http.Server{Addr: addr, Handler: router}}
}

// Server wraps http.Server, adding a Start that runs ListenAndServe in
// the background and a Stop/WaitStop pair built on Shutdown's own
// in-flight-request draining.
type Server struct {
	*http.Server

	serveErr chan error
}

// Start begins serving in a background goroutine. It does not block.
func (s *Server) Start() error {
	if s.Handler == nil {
		return errors.New("transport/http: no handler set")
	}
	if s.serveErr != nil {
		return errors.New("transport/http: server already started")
	}

	s.serveErr = make(chan error, 1)
	go func() {
		err := s.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()
	return nil
}

// Stop asks the server to shut down gracefully: it stops accepting new
// connections immediately and waits for in-flight requests to complete
// or ctx to be done, whichever comes first.
func (s *Server) Stop(ctx context.Context) error {
	if s.serveErr == nil {
		return errors.New("transport/http: server not started")
	}
	return s.Shutdown(ctx)
}

// WaitStop blocks until the background ListenAndServe goroutine started
// by Start has returned, reporting any error other than the expected
// listener-closed one.
func (s *Server) WaitStop(ctx context.Context) error {
	if s.serveErr == nil {
		return errors.New("transport/http: server not started")
	}
	select {
	case err := <-s.serveErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
