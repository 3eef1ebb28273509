// Filament Storage Bridge
// Copyright (c) 2026 The Filament Storage Bridge Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Filament Storage Bridge.
//
// Filament Storage Bridge is free software: you can redistribute it and/or
// modify it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Filament Storage Bridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Filament Storage Bridge.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the JSON-RPC API over websocket and HTTP, broadcasts
// device notifications to websocket clients, and keeps the plugin style
// REST command endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/filamentstorage/bridge/pkg/api/methods"
	"github.com/filamentstorage/bridge/pkg/api/middleware"
	"github.com/filamentstorage/bridge/pkg/api/models"
	"github.com/filamentstorage/bridge/pkg/api/models/requests"
	"github.com/filamentstorage/bridge/pkg/api/validation"
	"github.com/filamentstorage/bridge/pkg/config"
	"github.com/filamentstorage/bridge/pkg/device/ports"
	"github.com/filamentstorage/bridge/pkg/printer"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	maxRequestSize  = 1 << 20
	shutdownTimeout = 5 * time.Second
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
	JSONRPCErrorInvalidParams = models.ErrorObject{
		Code:    -32602,
		Message: "Invalid params",
	}
	JSONRPCErrorServerError = models.ErrorObject{
		Code:    -32000,
		Message: "Server error",
	}
)

// Options wires a Server. Config and Device are required.
type Options struct {
	Config   *config.Instance
	Device   requests.Device
	Printer  printer.Printer
	Discover func() ([]ports.Candidate, error)
	Methods  *MethodMap
	Limiter  *middleware.IPRateLimiter
}

type Server struct {
	cfg      *config.Instance
	device   requests.Device
	printer  printer.Printer
	discover func() ([]ports.Candidate, error)
	methods  *MethodMap
	limiter  *middleware.IPRateLimiter
	ws       *melody.Melody
}

func NewServer(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		device:   opts.Device,
		printer:  opts.Printer,
		discover: opts.Discover,
		methods:  opts.Methods,
		limiter:  opts.Limiter,
		ws:       melody.New(),
	}
	if s.methods == nil {
		s.methods = NewMethodMap()
	}
	if s.limiter == nil {
		s.limiter = middleware.NewIPRateLimiter(
			middleware.DefaultRequestsPerMinute,
			middleware.DefaultBurstSize,
			nil,
		)
	}
	s.ws.Config.MaxMessageSize = maxRequestSize
	// the IP filter and CORS run before the upgrade
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	return s
}

func (s *Server) env(ctx context.Context, params json.RawMessage, id models.RPCID, remoteAddr string) requests.RequestEnv {
	return requests.RequestEnv{
		Context:  ctx,
		Device:   s.device,
		Printer:  s.printer,
		Config:   s.cfg,
		Discover: s.discover,
		Params:   params,
		ID:       id,
		IsLocal:  middleware.IsLoopbackAddr(remoteAddr),
	}
}

func isParamsError(err error) bool {
	var ve *validation.Error
	return errors.As(err, &ve) ||
		errors.Is(err, validation.ErrMissingParams) ||
		errors.Is(err, validation.ErrInvalidParams) ||
		errors.Is(err, methods.ErrNoValue)
}

// processRequest runs one request. It returns nil, nil for notifications,
// which get no reply.
func (s *Server) processRequest(
	ctx context.Context,
	req *models.RequestObject,
	remoteAddr string,
) (*models.ResponseObject, *models.ResponseErrorObject) {
	id := models.NullRPCID
	if req.ID != nil {
		id = *req.ID
	}
	fail := func(e models.ErrorObject) *models.ResponseErrorObject {
		return &models.ResponseErrorObject{JSONRPC: models.JSONRPCVersion, ID: id, Error: &e}
	}

	if req.JSONRPC != models.JSONRPCVersion {
		log.Warn().Str("jsonrpc", req.JSONRPC).Msg("unsupported payload version")
		return nil, fail(JSONRPCErrorInvalidRequest)
	}
	if req.Method == "" {
		return nil, fail(JSONRPCErrorInvalidRequest)
	}

	fn, ok := s.methods.GetMethod(req.Method)
	if !ok {
		if req.ID.IsAbsentOrNull() {
			return nil, nil
		}
		log.Warn().Str("method", req.Method).Msg("unknown method")
		return nil, fail(JSONRPCErrorMethodNotFound)
	}

	if req.ID.IsAbsentOrNull() {
		log.Debug().Str("method", req.Method).Msg("received notification, ignoring")
		return nil, nil
	}

	log.Debug().Str("method", req.Method).Str("id", id.String()).Msg("received request")

	result, err := fn(s.env(ctx, req.Params, id, remoteAddr))
	if err != nil {
		log.Warn().Err(err).Str("method", req.Method).Msg("error handling request")
		e := JSONRPCErrorServerError
		if isParamsError(err) {
			e = JSONRPCErrorInvalidParams
		}
		e.Message = err.Error()
		return nil, fail(e)
	}

	return &models.ResponseObject{JSONRPC: models.JSONRPCVersion, ID: id, Result: result}, nil
}

// handleMessage parses and runs a raw JSON-RPC message, returning the reply
// to send or nil.
func (s *Server) handleMessage(ctx context.Context, msg []byte, remoteAddr string) []byte {
	var reply any

	if !json.Valid(msg) {
		log.Warn().Msg("data not valid json")
		reply = models.ResponseErrorObject{
			JSONRPC: models.JSONRPCVersion,
			ID:      models.NullRPCID,
			Error:   &JSONRPCErrorParseError,
		}
	} else {
		var req models.RequestObject
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Warn().Err(err).Msg("message is not a request object")
			reply = models.ResponseErrorObject{
				JSONRPC: models.JSONRPCVersion,
				ID:      models.NullRPCID,
				Error:   &JSONRPCErrorInvalidRequest,
			}
		} else {
			resp, errResp := s.processRequest(ctx, &req, remoteAddr)
			switch {
			case errResp != nil:
				reply = errResp
			case resp != nil:
				reply = resp
			default:
				return nil
			}
		}
	}

	data, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Msg("error marshalling response")
		data, _ = json.Marshal(models.ResponseErrorObject{
			JSONRPC: models.JSONRPCVersion,
			ID:      models.NullRPCID,
			Error:   &models.ErrorObject{Code: -32603, Message: "Internal error"},
		})
	}
	return data
}

func (s *Server) handleWSMessage(ctx context.Context) func(*melody.Session, []byte) {
	return func(session *melody.Session, msg []byte) {
		// heartbeat
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		data := s.handleMessage(ctx, msg, session.Request.RemoteAddr)
		if data == nil {
			return
		}
		if err := session.Write(data); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

// handlePostRequest serves JSON-RPC over a plain HTTP POST. Errors are
// returned in the body with status 200, notifications get 204.
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	data := s.handleMessage(r.Context(), body, r.RemoteAddr)
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := methods.HandleStatus(s.env(r.Context(), nil, models.NullRPCID, r.RemoteAddr))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, pluginError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

// BroadcastNotifications sends every notification to all websocket clients
// until ctx is done or the channel closes.
func (s *Server) BroadcastNotifications(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}

			data, err := json.Marshal(models.NotificationObject{
				JSONRPC: models.JSONRPCVersion,
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}

			if err := s.ws.Broadcast(data); err != nil {
				log.Debug().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Handler builds the router. ctx bounds the handlers run for websocket
// messages.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.HTTPIPFilterMiddleware(middleware.NewIPFilter(s.cfg.AllowedIPs())))

	origins := s.cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Api-Key"},
	}))

	s.ws.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, s.handleWSMessage(ctx)))
	s.ws.HandleConnect(func(session *melody.Session) {
		log.Debug().Str("addr", session.Request.RemoteAddr).Msg("websocket client connected")
	})

	r.Get(config.APIPath, func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.NoCache)
		r.Use(chimiddleware.Timeout(config.APIRequestTimeout))
		r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))

		r.Post(config.APIPath, s.handlePostRequest)
		r.Post(config.PluginAPIPath, s.handlePluginCommand)
		r.Get(config.StatusAPIPath, s.handleStatus)
	})

	return r
}

// Close disconnects all websocket clients.
func (s *Server) Close() error {
	if err := s.ws.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
		return fmt.Errorf("failed to close websocket hub: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until ctx is done.
// The listener is open by the time ready is closed.
func Start(ctx context.Context, s *Server, notifications <-chan models.Notification, ready chan<- struct{}) error {
	addr := s.cfg.APIListen()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, s, ln, notifications, ready)
}

// Serve is Start on an existing listener.
func Serve(
	ctx context.Context,
	s *Server,
	ln net.Listener,
	notifications <-chan models.Notification,
	ready chan<- struct{},
) error {
	s.limiter.StartCleanup(ctx)
	go s.BroadcastNotifications(ctx, notifications)

	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
	if ready != nil {
		close(ready)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing websocket clients")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	log.Info().Msg("api server stopped")
	return nil
}
