// internal/httpapi/httpapi.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/bridge"
)

const (
	httpTimeout = 5 * time.Second
	maxBody     = 64 << 10
)

type Options struct {
	Log types.Logger

	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP control surface over one Bridge.
type Server struct {
	b      *bridge.Bridge
	log    types.Logger
	router *httprouter.Router
}

func New(b *bridge.Bridge, opts Options) *Server {
	s := &Server{b: b, log: opts.Log, router: httprouter.New()}

	r := s.router
	r.GET("/devices", s.devices)
	r.GET("/session", s.session)
	r.POST("/session/connect", s.connect)
	r.POST("/session/disconnect", s.disconnect)

	r.GET("/gpio", s.readGpio)
	r.GET("/gpio/:channel/config", s.getGpioConfig)
	r.PUT("/gpio/:channel/config", s.setGpioConfig)
	r.PUT("/gpio/:channel/value", s.writeGpio)

	r.PUT("/i2c/config", s.setI2cConfig)
	r.POST("/i2c/:address/write", s.writeI2c)
	r.POST("/i2c/:address/read", s.readI2c)

	r.PUT("/poll", s.startPoll)
	r.DELETE("/poll", s.stopPoll)
	r.PUT("/base", s.setBase)

	if opts.Gatherer != nil {
		r.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	if s.log != nil {
		s.log.Info().Str("addr", addr).Msg("http listening")
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shut, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		if err := srv.Shutdown(shut); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ---- encoding ----

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil && s.log != nil {
		s.log.Warn().Err(err).Msg("http: encode reply")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := brgerr.Of(err)
	s.reply(w, statusFor(code), errorBody{Code: string(code), Message: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.reply(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps an error code onto an HTTP status by category.
func statusFor(c brgerr.Code) int {
	switch c {
	case brgerr.NoDeviceFound:
		return http.StatusNotFound
	case brgerr.NotConnected, brgerr.Busy, brgerr.AlreadyInUse:
		return http.StatusConflict
	case brgerr.PermissionDenied:
		return http.StatusForbidden
	case brgerr.Timeout:
		return http.StatusGatewayTimeout
	}
	switch brgerr.CategoryOf(c) {
	case brgerr.CategoryParameter:
		return http.StatusBadRequest
	case brgerr.CategoryConnection, brgerr.CategoryCommunication:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
