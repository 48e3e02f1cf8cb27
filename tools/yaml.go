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
	"io"

	"github.com/Comcast/chunks/chunks"

	"gopkg.in/yaml.v2"
)

// YAMLChunk is a chunk as YAML.  Props keep their order.
type YAMLChunk struct {
	Type  string        `yaml:"type"`
	ID    string        `yaml:"id,omitempty"`
	Props yaml.MapSlice `yaml:"props,omitempty"`
}

// YAMLGraph is a graph as YAML.  Rules are in rule syntax.
type YAMLGraph struct {
	Chunks []*YAMLChunk `yaml:"chunks,omitempty"`
	Rules  []string     `yaml:"rules,omitempty"`
}

// ToYAML makes a YAMLGraph.  Gensym ids are dropped.
func ToYAML(g *chunks.Graph) (*YAMLGraph, error) {
	parts, err := ruleParts(g)
	if err != nil {
		return nil, err
	}
	y := &YAMLGraph{}
	for _, c := range g.All() {
		if c.Type == chunks.RuleType {
			src, err := g.RuleString(c, nil)
			if err != nil {
				return nil, err
			}
			y.Rules = append(y.Rules, src)
			continue
		}
		if parts[c.ID] {
			continue
		}
		yc := &YAMLChunk{
			Type: c.Type,
		}
		if !chunks.IsGensym(c.ID) {
			yc.ID = c.ID
		}
		c.Props.Each(func(name string, v chunks.Value) bool {
			yc.Props = append(yc.Props, yaml.MapItem{Key: name, Value: chunks.Native(v)})
			return true
		})
		y.Chunks = append(y.Chunks, yc)
	}
	return y, nil
}

// YAML writes the graph as YAML.
func YAML(g *chunks.Graph, w io.Writer) error {
	y, err := ToYAML(g)
	if err != nil {
		return err
	}
	bs, err := yaml.Marshal(y)
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}

// FromYAML reads a graph written by YAML.
func FromYAML(src []byte) (*chunks.Graph, error) {
	g := chunks.NewGraph()
	if err := ReadYAML(g, src); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadYAML adds the chunks and rules in the YAML to the graph.
//
// A string property that looks like a bare word comes back as a name.
func ReadYAML(g *chunks.Graph, src []byte) error {
	var y YAMLGraph
	if err := yaml.Unmarshal(src, &y); err != nil {
		return err
	}
	for _, yc := range y.Chunks {
		c := chunks.NewChunk(yc.Type, yc.ID)
		for _, item := range yc.Props {
			name, is := item.Key.(string)
			if !is {
				continue
			}
			if v := chunks.ValueOf(item.Value); v != nil {
				c.Props.Set(name, v)
			}
		}
		if _, err := g.Add(c); err != nil {
			return err
		}
	}
	for _, src := range y.Rules {
		if err := g.Parse(src); err != nil {
			return err
		}
	}
	return nil
}
