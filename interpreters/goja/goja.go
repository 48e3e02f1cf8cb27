package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// DefaultTimeout limits each execution when the Interpreter
	// has no Timeout.
	DefaultTimeout = time.Second

	// CodeProp is the action property that holds the code for
	// Eval.
	CodeProp = "code"
)

// Interpreter compiles JavaScript into engine Algorithms using Goja,
// which is a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// Timeout limits each execution.  Zero means DefaultTimeout.
	Timeout time.Duration

	// LibraryProvider resolves the names in a source's
	// "requires".  When nil, DefaultLibraryProvider is used.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider that reads "file://name"
// from the given directory.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			if strings.Contains(parts[1], "..") {
				return "", fmt.Errorf("bad library path '%s'", parts[1])
			}
			bs, err := ioutil.ReadFile(dir + "/" + parts[1])
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	if s, is := x.(string); is {
		code = s
	} else {
		err = errors.New("bad Goja code")
		return
	}

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource accepts plain code or a map with "code" and optional
// "requires".
//
// The standard YAML parser returns map[interface{}]interface{},
// which is supported along with the map[string]interface{} that
// https://github.com/jsccast/yaml returns.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile makes an Algorithm from the source.  The code runs as the
// body of a function, so it can return an object.
//
// This method can block if the interpreter's library provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (*Algorithm, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + wrapSrc(code)

	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return &Algorithm{
		i:       i,
		program: p,
	}, nil
}

// Algorithm is a compiled engine.Algorithm.
type Algorithm struct {
	i       *Interpreter
	program *goja.Program
}

// Exec implements engine.Algorithm.
//
// The following properties are available from the runtime at _.
//
//	values: the action's properties after substitution.
//	bindings: the rule's bindings (without the '?').
//	type: the action's chunk type.
//	module: the module name.
//	buffer: the module's buffer properties (or null).
//
// Some useful utilities:
//
//	log(x): send x (as JSON) to the engine's log sink.
//	gensym(): generate a fresh id in the module's graph.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time for the cron expression.
//	match(cond): test a condition (chunk syntax) against the
//	  current buffers and return the extended bindings or null.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
//
// When the code returns an object, its properties are written to
// the buffer: a copy of the buffer if the buffer has the action's
// type, otherwise a new chunk of that type.  A null property value
// deletes the property.
func (a *Algorithm) Exec(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	return a.i.run(a.program, m, action, values, bs)
}

// Eval returns an Algorithm that compiles and runs the code in the
// action's "code" property.
func (i *Interpreter) Eval() engine.Algorithm {
	return engine.AlgorithmFunc(func(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
		v, have := values.Get(CodeProp)
		if !have {
			return fmt.Errorf("no %s", CodeProp)
		}
		var src string
		switch vv := v.(type) {
		case chunks.String:
			src = string(vv)
		case chunks.Name:
			src = string(vv)
		default:
			return fmt.Errorf("bad %s: %s", CodeProp, v)
		}
		a, err := i.Compile(context.Background(), src)
		if err != nil {
			return err
		}
		return a.Exec(m, action, values, bs)
	})
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

func (i *Interpreter) run(p *goja.Program, m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	e := m.Engine()

	bindings := make(map[string]interface{}, len(bs))
	for k, v := range bs {
		bindings[k] = chunks.Native(v)
	}

	env := map[string]interface{}{
		"values":   values.Map(),
		"bindings": bindings,
		"type":     action.Type,
		"module":   m.Name,
	}
	if buf := m.Buffer(); buf != nil {
		env["buffer"] = buf.Props.Map()
	} else {
		env["buffer"] = nil
	}

	o := goja.New()

	o.Set("_", env)

	if i.Testing {
		env["sleep"] = func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
	}

	env["gensym"] = func() interface{} {
		return m.Graph.Gensym()
	}

	env["cronNext"] = func(x interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			e.Logger.Warn("goja.log", zap.Error(err))
		} else {
			e.Logf("%s", js)
		}
		return x
	}

	env["match"] = func(x interface{}) interface{} {
		src, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		cond, err := chunks.ParseChunk(src)
		if err != nil {
			protest(o, err.Error())
		}
		acc := bs.Copy()
		matcher := &match.Matcher{State: e}
		ok, err := matcher.Condition(cond, acc, false)
		if err != nil {
			protest(o, err.Error())
		}
		if !ok {
			return nil
		}
		js := make(map[string]interface{}, len(acc))
		for k, v := range acc {
			js[k] = chunks.Native(v)
		}
		return js
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.AfterFunc(timeout, func() {
		o.Interrupt(InterruptedMessage)
	})

	v, err := o.RunProgram(p)
	timer.Stop()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return Interrupted
		}
		return err
	}

	switch vv := v.Export().(type) {
	case nil:
		return nil
	case map[string]interface{}:
		write(m, action.Type, vv)
		return nil
	default:
		return fmt.Errorf("%#v (%T) isn't an object", vv, vv)
	}
}

// write merges the properties into the buffer.
func write(m *engine.Module, typ string, props map[string]interface{}) {
	var c *chunks.Chunk
	if buf := m.ReadBuffer(); buf != nil && buf.Type == typ {
		c = buf
	} else {
		c = chunks.NewChunk(typ, "")
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		x := props[k]
		if x == nil {
			c.Props.Delete(k)
			continue
		}
		c.Props.Set(k, chunks.ValueOf(x))
	}
	m.WriteBuffer(c)
}
