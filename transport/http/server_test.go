package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartStopWaitStop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := &Server{Server: &http.Server{Addr: "127.0.0.1:0", Handler: mux}}
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.WaitStop(ctx))
}

func TestServerStartRequiresHandler(t *testing.T) {
	s := &Server{Server: &http.Server{Addr: ":0"}}
	assert.Error(t, s.Start())
}

func TestServerStopBeforeStartFails(t *testing.T) {
	s := &Server{Server: &http.Server{Addr: ":0"}}
	assert.Error(t, s.Stop(context.Background()))
}
