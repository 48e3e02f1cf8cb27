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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

func TestWebSocket(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWebSocket("localhost:0", nil)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	in, out, done, err := w.IO(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if done != nil {
		t.Fatal("WebSocket input shouldn't end")
	}

	conn, _, err := websocket.DefaultDialer.Dial(w.URL(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err = conn.WriteJSON(&Input{Module: "goal", Chunk: "count {n 1}"}); err != nil {
		t.Fatal(err)
	}

	select {
	case x := <-in:
		if diff := cmp.Diff(&Input{Module: "goal", Chunk: "count {n 1}"}, x); diff != "" {
			t.Fatal(diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no input")
	}

	// The session is registered by now.
	out <- &Output{Log: "hello"}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var o Output
	if err = conn.ReadJSON(&o); err != nil {
		t.Fatal(err)
	}
	if o.Log != "hello" {
		t.Fatal(o)
	}

	if err = conn.WriteMessage(websocket.TextMessage, []byte("{bad")); err != nil {
		t.Fatal(err)
	}
	o = Output{}
	if err = conn.ReadJSON(&o); err != nil {
		t.Fatal(err)
	}
	if o.Err == "" {
		t.Fatal(o)
	}

	cancel()
	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	if err = w.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
}
