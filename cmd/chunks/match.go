/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"

	"github.com/spf13/cobra"
)

// ErrNoMatch is returned when nothing matches.
var ErrNoMatch = errors.New("no match")

var matchOpts struct {
	graphs []string
	json   bool
}

var matchCmd = &cobra.Command{
	Use:   "match CONDITION [CHUNK]",
	Short: "Match a condition against a chunk or search graphs with a pattern",
	Long: `Match a condition against a chunk and print the bindings.

With --graph, the condition is a pattern, and every chunk in the
graphs that the pattern describes is printed along with the
bindings from matching the pattern against that chunk.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMatch,
}

func init() {
	fs := matchCmd.Flags()
	fs.StringSliceVar(&matchOpts.graphs, "graph", nil, "graph files to search")
	fs.BoolVar(&matchOpts.json, "json", false, "print bindings as JSON")
}

// matchChunk matches the condition against the chunk as the buffer
// of the condition's module.
func matchChunk(cond, c *chunks.Chunk) (match.Bindings, bool, error) {
	e := engine.NewEngine(nil, logger)
	e.AddModule(match.ModuleOf(cond), nil, nil).WriteBuffer(c)
	m := &match.Matcher{State: e}
	bs := match.NewBindings()
	ok, err := m.Condition(cond, bs, false)
	return bs, ok, err
}

func printBindings(cmd *cobra.Command, bs match.Bindings) error {
	if matchOpts.json {
		js, err := json.Marshal(bs.Native())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(js))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), bs.String())
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	cond, err := chunks.ParseChunk(args[0])
	if err != nil {
		return err
	}

	if len(args) == 2 {
		c, err := chunks.ParseChunk(args[1])
		if err != nil {
			return err
		}
		bs, ok, err := matchChunk(cond, c)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoMatch
		}
		return printBindings(cmd, bs)
	}

	if len(matchOpts.graphs) == 0 {
		return errors.New("need a chunk or --graph")
	}

	g, err := readGraphs(matchOpts.graphs...)
	if err != nil {
		return err
	}

	found := match.Search(g, cond, nil)
	if len(found) == 0 {
		return ErrNoMatch
	}
	for _, c := range found {
		fmt.Fprintln(cmd.OutOrStdout(), c.String())
		bs, ok, err := matchChunk(cond, c)
		if err != nil {
			return err
		}
		if ok {
			if err = printBindings(cmd, bs); err != nil {
				return err
			}
		}
	}
	return nil
}
