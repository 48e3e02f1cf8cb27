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
	"html"
	"io"
	"io/ioutil"
	"sort"

	"github.com/Comcast/chunks/chunks"

	md "github.com/russross/blackfriday/v2"
)

// DocProp is the chunk property that holds Markdown documentation.
var DocProp = "@doc"

func docOf(c *chunks.Chunk) string {
	v, have := c.Props.Get(DocProp)
	if !have {
		return ""
	}
	if s, is := v.(chunks.String); is {
		return string(s)
	}
	return v.String()
}

// ruleParts returns the ids of the chunks that are conditions or
// actions of rules.
func ruleParts(g *chunks.Graph) (map[string]bool, error) {
	acc := make(map[string]bool)
	for _, r := range g.Rules() {
		conds, _, actions, err := g.RuleParts(r)
		if err != nil {
			return nil, err
		}
		for _, c := range conds {
			acc[c.ID] = true
		}
		for _, a := range actions {
			acc[a.ID] = true
		}
	}
	return acc, nil
}

// RenderHTML writes an HTML fragment for the graph: its rules with
// their connections and then its other chunks by type.  A chunk's
// @doc is rendered as Markdown.
func RenderHTML(g *chunks.Graph, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	parts, err := ruleParts(g)
	if err != nil {
		return err
	}
	edges, err := Flow(g)
	if err != nil {
		return err
	}
	feeds := make(map[string][]*Edge)
	for _, e := range edges {
		feeds[e.From] = append(feeds[e.From], e)
	}

	if rules := g.Rules(); 0 < len(rules) {
		f(`<div class="rules"><table>`)
		for _, r := range rules {
			src, err := g.RuleString(r, &chunks.FormatOpts{})
			if err != nil {
				return err
			}
			id := html.EscapeString(r.ID)
			f(`<tr class="rule"><td><span id="%s" class="ruleName">%s</span></td><td>`, id, id)
			f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(src))
			if es := feeds[r.ID]; 0 < len(es) {
				f(`<div class="feeds">`)
				for _, e := range es {
					to := html.EscapeString(e.To)
					f(`<a href="#%s"><code>%s</code></a> <span class="via">%s</span><br/>`,
						to, to, html.EscapeString(e.Label()))
				}
				f(`</div>`)
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	byType := make(map[string][]*chunks.Chunk)
	for _, c := range g.All() {
		if c.Type == chunks.RuleType || parts[c.ID] {
			continue
		}
		byType[c.Type] = append(byType[c.Type], c)
	}
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	for _, typ := range types {
		f(`<div class="chunks"><h2 class="chunkType">%s</h2><table>`, html.EscapeString(typ))
		for _, c := range byType[typ] {
			doc := docOf(c)
			shown := c
			if doc != "" {
				shown = c.Copy()
				shown.Props.Delete(DocProp)
			}
			f(`<tr class="chunk"><td><span id="%s" class="chunkName">%s</span></td><td>`,
				html.EscapeString(c.ID), html.EscapeString(c.ID))
			f(`<code>%s</code>`, html.EscapeString(shown.String()))
			if doc != "" {
				f(`<div class="chunkDoc doc">%s</div>`, md.Run([]byte(doc)))
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	return nil
}

// RenderPage writes a complete HTML page for the graph.  The doc,
// if not empty, is Markdown for the top of the page.
func RenderPage(g *chunks.Graph, title, doc string, cssFiles []string, out io.Writer) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/chunks.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if doc != "" {
		fmt.Fprintf(out, "<div class=\"graphDoc doc\">%s</div>\n", md.Run([]byte(doc)))
	}

	if err := RenderHTML(g, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderPage parses the file as a graph and renders it as a
// page titled with the filename.
func ReadAndRenderPage(filename string, cssFiles []string, out io.Writer) error {
	src, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	g, err := chunks.ParseGraph(string(src))
	if err != nil {
		return err
	}
	return RenderPage(g, filename, "", cssFiles, out)
}
