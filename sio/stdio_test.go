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
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestParseLine(t *testing.T) {
	in, err := parseLine(`count {n 1}`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Input{Chunk: "count {n 1}"}, in); diff != "" {
		t.Fatal(diff)
	}

	in, err = parseLine(`{"module":"facts","graph":"color {name red}"}`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Input{Module: "facts", Graph: "color {name red}"}, in); diff != "" {
		t.Fatal(diff)
	}

	if _, err = parseLine(`{"module":`); err == nil {
		t.Fatal("should have complained")
	}
}

func TestStdio(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	s := NewStdio(false, nil)
	s.In = strings.NewReader(`# a comment
count {n 1}

{"module":"facts","graph":"color {name red}"}
quit
count {n 2}
`)
	s.Out = &out
	s.Tags = true
	s.PrintBuffers = true

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	in, o, done, err := s.IO(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var got []*Input
LOOP:
	for {
		select {
		case x := <-in:
			got = append(got, x)
		case <-done:
			break LOOP
		}
	}
	want := []*Input{
		{Chunk: "count {n 1}"},
		{Module: "facts", Graph: "color {name red}"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}

	<-s.InputEOF

	o <- &Output{Log: "hello"}
	o <- &Output{Err: "oops"}
	o <- &Output{Module: "goal", Buffer: "count {n 2}"}
	o <- &Output{Module: "goal", Cleared: true}
	o <- nil

	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	expected := `log hello
error oops
buffer goal count {n 2}
cleared goal
`
	if diff := cmp.Diff(expected, out.String()); diff != "" {
		t.Fatal(diff)
	}
}

func TestStdioQuiet(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	s := NewStdio(false, nil)
	s.In = strings.NewReader("")
	s.Out = &out

	_, o, done, err := s.IO(ctx)
	if err != nil {
		t.Fatal(err)
	}
	<-done

	o <- &Output{Module: "goal", Buffer: "count {n 2}"}
	o <- &Output{Log: "hello"}
	o <- nil

	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "hello\n" {
		t.Fatal(got)
	}
}

func TestShellExpand(t *testing.T) {
	s, err := ShellExpand(`count {n <<echo 42>>}`)
	if err != nil {
		t.Skip(err)
	}
	if s != "count {n 42}" {
		t.Fatal(s)
	}
}
