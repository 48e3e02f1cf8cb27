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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// An input line is either a JSON Input or a chunk for the goal
// module.  The line "quit" ends the input.
type Stdio struct {
	// In is coupled to host input.
	In io.Reader

	// Out is coupled to host output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "log", "buffer", "cleared", "error").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// PrintBuffers prints buffer changes.
	PrintBuffers bool

	Logger *zap.Logger

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	WG sync.WaitGroup
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool, logger *zap.Logger) *Stdio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		Logger:      logger,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its
// context.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

// parseLine makes an Input from a line.
func parseLine(line string) (*Input, error) {
	if strings.HasPrefix(line, "{") {
		var in Input
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	return &Input{
		Chunk: line,
	}, nil
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan *Input, chan *Output, chan bool, error) {
	in := make(chan *Input)
	done := make(chan bool)

	printf := func(tag, format string, args ...interface{}) {
		if s.PadTags {
			tag = fmt.Sprintf("% 8s", tag)
		}
		if s.Tags {
			format = tag + " " + format
		}
		if s.Timestamps {
			ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
			format = ts + " " + format
		}

		fmt.Fprintf(s.Out, format, args...)
	}

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		defer close(s.InputEOF)
		defer close(done)

		stdin := bufio.NewReader(s.In)
		for {
			line, err := stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				s.Logger.Error("stdin", zap.Error(err))
				return
			}
			eof := err == io.EOF
			line = strings.TrimSpace(line)
			if line == "quit" {
				return
			}
			if s.EchoInput && line != "" {
				printf("input", "%s\n", line)
			}
			if line != "" && !strings.HasPrefix(line, "#") {
				if s.ShellExpand {
					if line, err = ShellExpand(line); err != nil {
						s.Logger.Error("stdin", zap.Error(err))
						return
					}
				}
				msg, err := parseLine(line)
				if err != nil {
					printf("error", "bad input: %s\n", err)
				} else {
					select {
					case <-ctx.Done():
						return
					case in <- msg:
					}
				}
			}
			if eof {
				s.Logger.Debug("stdio input done")
				return
			}
		}
	}()

	out := make(chan *Output)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case o := <-out:
				if o == nil {
					s.Logger.Debug("stdio output done")
					return
				}
				switch {
				case o.Err != "":
					printf("error", "%s\n", o.Err)
				case o.Log != "":
					printf("log", "%s\n", o.Log)
				case !s.PrintBuffers:
				case o.Cleared:
					printf("cleared", "%s\n", o.Module)
				default:
					printf("buffer", "%s %s\n", o.Module, o.Buffer)
				}
			}
		}
	}()

	return in, out, done, nil
}
