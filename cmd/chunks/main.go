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

// Package main is a command-line tool for chunk graphs and rules.
//
//	chunks run --rules rules.chk --facts facts.chk --goal 'count {state start; start 3; end 8}'
//	chunks match 'count {n ?n}' 'count {n 3}'
//	chunks fmt --concise graph.chk
//	chunks render --format dot rules.chk
//	chunks snapshot save --db chunks.db --host h1 --rules rules.chk
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/interpreters"
	"github.com/Comcast/chunks/interpreters/goja"
	"github.com/Comcast/chunks/tools"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "chunks",
	Short:         "Chunk graphs and rules",
	Long:          "chunks parses, matches, renders, and runs chunk graphs and their rules.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// modules are the flags that name module graphs.
type modules struct {
	rules   string
	facts   []string
	others  []string
	library string
}

func (ms *modules) flags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&ms.rules, "rules", "", "rules file for the rules module")
	fs.StringSliceVar(&ms.facts, "facts", nil, "fact files for the facts module")
	fs.StringArrayVar(&ms.others, "module", nil, "NAME=FILE to load a file into a module")
	fs.StringVar(&ms.library, "library", "", "YAML library of JavaScript algorithms")
}

// readGraph reads a file in chunk syntax, or YAML if the file name
// ends in .yaml or .yml, into the graph.
func readGraph(g *chunks.Graph, filename string) error {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		if err = tools.ReadYAML(g, bs); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		return nil
	}
	if err = g.Parse(string(bs)); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}

func readGraphs(filenames ...string) (*chunks.Graph, error) {
	g := chunks.NewGraph()
	for _, filename := range filenames {
		if err := readGraph(g, filename); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// algorithms returns a function that gives each module the standard
// algorithms plus any from the library.
func (ms *modules) algorithms(cmd *cobra.Command) (func(string) engine.Algorithms, error) {
	var lib engine.Algorithms
	if ms.library != "" {
		i := goja.NewInterpreter()
		var err error
		if lib, err = i.ReadLibrary(cmd.Context(), ms.library); err != nil {
			return nil, err
		}
	}
	return func(string) engine.Algorithms {
		return interpreters.Standard().Merge(lib)
	}, nil
}

// load adds the modules to the engine.  A console module is always
// there for logging.
func (ms *modules) load(e *engine.Engine, algorithms func(string) engine.Algorithms) error {
	add := func(name string, filenames ...string) error {
		m, have := e.Modules[name]
		if !have {
			m = e.AddModule(name, nil, algorithms(name))
		}
		for _, filename := range filenames {
			if err := readGraph(m.Graph, filename); err != nil {
				return err
			}
		}
		return nil
	}

	if ms.rules != "" {
		if err := add(engine.RulesModule, ms.rules); err != nil {
			return err
		}
	}
	if 0 < len(ms.facts) {
		if err := add("facts", ms.facts...); err != nil {
			return err
		}
	}
	for _, spec := range ms.others {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("bad --module %q (want NAME=FILE)", spec)
		}
		if err := add(parts[0], parts[1]); err != nil {
			return err
		}
	}
	for _, name := range []string{engine.GoalModule, "console"} {
		if err := add(name); err != nil {
			return err
		}
	}
	return nil
}
