package noop

import (
	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"

	"go.uber.org/zap"
)

// Algorithm is an engine.Algorithm that does nothing successfully.
type Algorithm struct {
	// Silent, if false, will log a warning for each execution.
	Silent bool
}

func NewAlgorithm() *Algorithm {
	return &Algorithm{}
}

func (a *Algorithm) Exec(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	if !a.Silent {
		m.Engine().Logger.Warn("noop",
			zap.String("module", m.Name),
			zap.Stringer("action", action))
	}
	return nil
}
