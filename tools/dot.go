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

package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/chunks/chunks"
)

// Dot makes a Graphviz dot file for the graph's rules.  Each rule is
// a node, and an edge goes from a rule to every rule that one of its
// actions can feed.
//
// The optional highlight is a rule id, which will be red.
func Dot(g *chunks.Graph, w io.Writer, highlight string) error {
	edges, err := Flow(g)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="note" style="rounded,filled"]
  edge [fontsize = "10"]
`)

	opts := &chunks.FormatOpts{}
	for _, r := range g.Rules() {
		src, err := g.RuleString(r, opts)
		if err != nil {
			return err
		}
		label := `<B>` + html.EscapeString(r.ID) + `</B><FONT POINT-SIZE="8"><BR/>` +
			lines(src) + `</FONT>`

		color, fillcolor := "black", "#99ddc8"
		if r.ID == highlight {
			color, fillcolor = "red", "#f98b8b"
		}
		fmt.Fprintf(w, "  %s [color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			quoteID(r.ID), color, fillcolor, label)
	}

	for _, e := range edges {
		color := "black"
		if e.From == highlight {
			color = "red"
		}
		fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = \"%s\" ]\n",
			quoteID(e.From), quoteID(e.To), color, escape(e.Label()))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(g *chunks.Graph, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(g, dotfile, highlight); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err = dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// lines makes HTML-label lines from verbose chunk text.
func lines(src string) string {
	return strings.Replace(html.EscapeString(src), "\n", `<BR ALIGN="LEFT"/>`, -1)
}

func quoteID(id string) string {
	return `"` + escape(id) + `"`
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}
