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

	"github.com/Comcast/chunks/tools"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var renderOpts struct {
	format    string
	highlight string
	css       []string
	basename  string
}

var renderCmd = &cobra.Command{
	Use:   "render FILE...",
	Short: "Render a graph as dot, mermaid, html, yaml, or png",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Summarize a graph's rules and report problems",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraphs(args...)
		if err != nil {
			return err
		}
		a, err := tools.Analyze(g)
		if err != nil {
			return err
		}
		bs, err := yaml.Marshal(a)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(bs))
		if 0 < len(a.Errors) {
			return fmt.Errorf("%d errors", len(a.Errors))
		}
		return nil
	},
}

func init() {
	fs := renderCmd.Flags()
	fs.StringVarP(&renderOpts.format, "format", "f", "dot", "dot, mermaid, html, yaml, or png")
	fs.StringVar(&renderOpts.highlight, "highlight", "", "rule id to highlight (dot, png)")
	fs.StringSliceVar(&renderOpts.css, "css", nil, "CSS files for the html page")
	fs.StringVar(&renderOpts.basename, "out", "graph", "basename for png output")
}

func runRender(cmd *cobra.Command, args []string) error {
	g, err := readGraphs(args...)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch renderOpts.format {
	case "dot":
		return tools.Dot(g, out, renderOpts.highlight)
	case "mermaid":
		return tools.Mermaid(g, out, nil)
	case "html":
		return tools.RenderPage(g, args[0], "", renderOpts.css, out)
	case "yaml":
		return tools.YAML(g, out)
	case "png":
		filename, err := tools.PNG(g, renderOpts.basename, renderOpts.highlight)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, filename)
		return nil
	default:
		return fmt.Errorf("unknown format %q", renderOpts.format)
	}
}
