/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket is a Couplings that serves WebSocket clients.  Each
// client message is a JSON Input, and every Output goes to every
// client as JSON.
type WebSocket struct {
	// Addr is the listen address (for example "localhost:8080").
	Addr string

	// Path is the URL path for the WebSocket endpoint.
	Path string

	// Backlog is the number of Outputs queued for each client
	// before Outputs for that client are dropped.
	Backlog int

	Logger *zap.Logger

	upgrader websocket.Upgrader
	listener net.Listener
	server   *http.Server

	sync.Mutex
	sessions map[string]*session

	in  chan *Input
	out chan *Output
	wg  sync.WaitGroup
}

type session struct {
	conn *websocket.Conn
	out  chan *Output
}

// NewWebSocket makes a WebSocket that will listen on the given
// address.
func NewWebSocket(addr string, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocket{
		Addr:     addr,
		Path:     "/ws",
		Backlog:  32,
		Logger:   logger,
		sessions: make(map[string]*session, 8),
		in:       make(chan *Input),
		out:      make(chan *Output),
	}
}

// Start starts listening.
func (w *WebSocket) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", w.Addr)
	if err != nil {
		return err
	}
	w.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(w.Path, func(rw http.ResponseWriter, r *http.Request) {
		w.serve(ctx, rw, r)
	})
	w.server = &http.Server{
		Handler: mux,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			w.Logger.Error("WebSocket.Serve", zap.Error(err))
		}
	}()

	w.Logger.Info("WebSocket listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// URL returns the WebSocket URL after Start.
func (w *WebSocket) URL() string {
	return "ws://" + w.listener.Addr().String() + w.Path
}

// IO returns the input and output channels.  WebSocket input never
// ends, so the done channel is nil.
func (w *WebSocket) IO(ctx context.Context) (chan *Input, chan *Output, chan bool, error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case o := <-w.out:
				if o == nil {
					return
				}
				w.broadcast(o)
			}
		}
	}()

	return w.in, w.out, nil, nil
}

func (w *WebSocket) broadcast(o *Output) {
	w.Lock()
	defer w.Unlock()
	for id, s := range w.sessions {
		select {
		case s.out <- o:
		default:
			w.Logger.Warn("WebSocket output dropped", zap.String("session", id))
		}
	}
}

func (w *WebSocket) serve(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.Logger.Warn("WebSocket upgrade", zap.Error(err))
		return
	}

	w.wg.Add(1)
	defer w.wg.Done()

	id := uuid.NewString()
	s := &session{
		conn: conn,
		out:  make(chan *Output, w.Backlog),
	}
	w.Lock()
	w.sessions[id] = s
	w.Unlock()

	log := w.Logger.With(zap.String("session", id))
	log.Info("WebSocket connection")

	defer func() {
		w.Lock()
		delete(w.sessions, id)
		w.Unlock()
		conn.Close()
		log.Info("WebSocket disconnected")
	}()

	ctl := make(chan struct{})
	defer close(ctl)

	go func() {
		for {
			select {
			case <-ctl:
				return
			case <-ctx.Done():
				return
			case o := <-s.out:
				js, err := json.Marshal(o)
				if err != nil {
					log.Error("WebSocket marshal", zap.Error(err))
					continue
				}
				if err = conn.WriteMessage(websocket.TextMessage, js); err != nil {
					log.Warn("WebSocket write", zap.Error(err))
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var in Input
		if err := json.Unmarshal(message, &in); err != nil {
			select {
			case s.out <- &Output{Err: "can't parse: " + err.Error()}:
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case w.in <- &in:
		}
	}
}

// Stop closes the listener and every connection.
func (w *WebSocket) Stop(ctx context.Context) error {
	var err error
	if w.server != nil {
		err = w.server.Shutdown(ctx)
	}
	w.Lock()
	for _, s := range w.sessions {
		s.conn.Close()
	}
	w.Unlock()
	w.wg.Wait()
	return err
}
