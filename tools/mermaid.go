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

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/chunks/chunks"
)

type MermaidOpts struct {
	// ShowRules labels each node with its rule's text rather
	// than just the rule id.
	ShowRules bool `json:"showRules"`

	// ShowTypes labels each edge with the module and chunk type
	// that connect the rules.
	ShowTypes bool `json:"showTypes"`

	// UnfedFill is the fill color for rules that only outside
	// input can trigger.
	UnfedFill string `json:"unfedFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the graph's rules.
func Mermaid(g *chunks.Graph, w io.Writer, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowRules: true,
			ShowTypes: true,
			UnfedFill: "#bcf2db",
		}
	}

	edges, err := Flow(g)
	if err != nil {
		return err
	}
	a, err := Analyze(g)
	if err != nil {
		return err
	}
	unfed := make(map[string]bool, len(a.Unfed))
	for _, id := range a.Unfed {
		unfed[id] = true
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	for i, r := range g.Rules() {
		nid := fmt.Sprintf("n%d", i+1)
		nids[r.ID] = nid

		label := r.ID
		if opts.ShowRules {
			src, err := g.RuleString(r, nil)
			if err != nil {
				return err
			}
			label = strings.Replace(src, `"`, `'`, -1)
		}
		fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, label)
		if unfed[r.ID] && opts.UnfedFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.UnfedFill)
		}
	}

	for _, e := range edges {
		label := ""
		if opts.ShowTypes {
			label = fmt.Sprintf(`-- "%s"`, e.Label())
		}
		fmt.Fprintf(w, "  %s %s --> %s\n", nids[e.From], label, nids[e.To])
	}

	fmt.Fprintf(w, "\n")

	return nil
}
