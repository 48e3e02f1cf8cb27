package interpreters

import (
	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/interpreters/goja"
	"github.com/Comcast/chunks/interpreters/noop"
	"github.com/Comcast/chunks/match"
)

// Standard returns the algorithms that every module can use:
//
//	log: send the action's values to the engine's log sink.
//	noop: do nothing.
//	js: run the JavaScript in the action's "code" property.
func Standard() engine.Algorithms {
	as := engine.NewAlgorithms()

	as["log"] = engine.AlgorithmFunc(Log)

	as["noop"] = &noop.Algorithm{Silent: true}

	js := goja.NewInterpreter().Eval()
	as["js"] = js
	as["goja"] = js

	return as
}

// Log sends a line to the engine's log sink.  An action with just
// one value logs that value.  Otherwise the line is the action's
// values in chunk syntax.
func Log(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	c := chunks.NewChunk(action.Type, "")
	values.Each(func(name string, v chunks.Value) bool {
		if name != "" && name[0] != '@' {
			c.Props.Set(name, v)
		}
		return true
	})

	line := c.Format(&chunks.FormatOpts{Concise: true})
	if c.Props.Len() == 1 {
		v, _ := c.Props.Get(c.Props.Names()[0])
		line = v.String()
		if s, is := v.(chunks.String); is {
			line = string(s)
		}
	}
	m.Engine().Logf("%s", line)
	return nil
}
