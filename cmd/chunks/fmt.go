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
	"fmt"

	"github.com/Comcast/chunks/chunks"

	"github.com/spf13/cobra"
)

var fmtOpts struct {
	concise     bool
	subSymbolic bool
}

var fmtCmd = &cobra.Command{
	Use:   "fmt FILE...",
	Short: "Reformat graphs in chunk syntax",
	Long: `Parse the files into one graph and print the graph in chunk syntax.

A file ending in .yaml or .yml is read as YAML (see "render --format yaml").`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraphs(args...)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), g.Format(&chunks.FormatOpts{
			Concise:     fmtOpts.concise,
			SubSymbolic: fmtOpts.subSymbolic,
		}))
		return nil
	},
}

func init() {
	fs := fmtCmd.Flags()
	fs.BoolVarP(&fmtOpts.concise, "concise", "c", false, "one chunk per line")
	fs.BoolVar(&fmtOpts.subSymbolic, "subsymbolic", false, "include @strength, @ago, and @usage")
}
