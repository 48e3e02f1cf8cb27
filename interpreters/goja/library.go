package goja

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/Comcast/chunks/engine"

	"github.com/jsccast/yaml"
)

// Library is a set of algorithm sources along with the named
// libraries that they can require.
//
//	libraries:
//	  util: |
//	    function inc(n) { return n + 1; }
//	algorithms:
//	  increment:
//	    requires: util
//	    code: return {n: inc(_.values.n)};
type Library struct {
	Libraries  map[string]string      `json:"libraries,omitempty" yaml:"libraries,omitempty"`
	Algorithms map[string]interface{} `json:"algorithms" yaml:"algorithms"`
}

// ParseLibrary parses a Library in YAML (or JSON).
func ParseLibrary(bs []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(bs, &lib); err != nil {
		return nil, err
	}
	return &lib, nil
}

// ReadLibrary reads a Library file and compiles it.
func (i *Interpreter) ReadLibrary(ctx context.Context, filename string) (engine.Algorithms, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lib, err := ParseLibrary(bs)
	if err != nil {
		return nil, err
	}
	return i.CompileLibrary(ctx, lib)
}

// CompileLibrary compiles each of the library's algorithms.  The
// library's own Libraries are consulted before the Interpreter's
// LibraryProvider.
func (i *Interpreter) CompileLibrary(ctx context.Context, lib *Library) (engine.Algorithms, error) {
	j := *i
	if 0 < len(lib.Libraries) {
		local := MakeMapLibraryProvider(lib.Libraries)
		j.LibraryProvider = func(ctx context.Context, _ *Interpreter, name string) (string, error) {
			if _, have := lib.Libraries[name]; have {
				return local(ctx, i, name)
			}
			return i.ProvideLibrary(ctx, name)
		}
	}

	as := engine.NewAlgorithms()
	for name, src := range lib.Algorithms {
		a, err := j.Compile(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("algorithm %s: %w", name, err)
		}
		as[name] = a
	}
	return as, nil
}
