package goja

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"
)

func testModule(t *testing.T) (*engine.Engine, *engine.Module, *[]string) {
	conf := engine.DefaultConf()
	conf.SingleStep = true
	conf.Seed = 1
	e := engine.NewEngine(conf, nil)
	var logged []string
	e.Log = func(msg string) {
		logged = append(logged, msg)
	}
	return e, e.AddModule("dev", nil, nil), &logged
}

func exec(t *testing.T, i *Interpreter, m *engine.Module, code string, values *chunks.Props, bs match.Bindings) error {
	a, err := i.Compile(context.Background(), code)
	if err != nil {
		t.Fatal(err)
	}
	if values == nil {
		values = &chunks.Props{}
	}
	if bs == nil {
		bs = match.NewBindings()
	}
	return a.Exec(m, chunks.NewChunk("said", ""), values, bs)
}

func prop(c *chunks.Chunk, name string) interface{} {
	if c == nil {
		return nil
	}
	v, _ := c.Value(name)
	return chunks.Native(v)
}

func TestActionsSimple(t *testing.T) {
	_, m, _ := testModule(t)
	if err := exec(t, NewInterpreter(), m, `return {likes:"chips"};`, nil, nil); err != nil {
		t.Fatal(err)
	}
	c := m.Buffer()
	if c == nil || c.Type != "said" {
		t.Fatalf("buffer %v", c)
	}
	if s := prop(c, "likes"); s != "chips" {
		t.Fatalf("didn't want %#v", s)
	}
}

func TestActionsParams(t *testing.T) {
	_, m, _ := testModule(t)
	code := `return {n: _.values.n + 1, who: _.bindings.who, mod: _.module};`
	values := chunks.NewProps("n", 2)
	bs := match.Bindings{"who": chunks.Name("homer")}
	if err := exec(t, NewInterpreter(), m, code, values, bs); err != nil {
		t.Fatal(err)
	}
	c := m.Buffer()
	if prop(c, "n") != 3.0 || prop(c, "who") != "homer" || prop(c, "mod") != "dev" {
		t.Fatal(c)
	}
}

func TestActionsMerge(t *testing.T) {
	_, m, _ := testModule(t)
	buf, err := chunks.ParseChunk(`said {a 1; b 2}`)
	if err != nil {
		t.Fatal(err)
	}
	m.WriteBuffer(buf)

	if err := exec(t, NewInterpreter(), m, `return {b: null, c: _.buffer.a + 2};`, nil, nil); err != nil {
		t.Fatal(err)
	}
	c := m.Buffer()
	if prop(c, "a") != 1.0 || c.Props.Has("b") || prop(c, "c") != 3.0 {
		t.Fatal(c)
	}
	if prop(buf, "b") != 2.0 {
		t.Fatal("buffer chunk modified in place")
	}
}

func TestActionsTimeout(t *testing.T) {
	_, m, _ := testModule(t)
	i := NewInterpreter()
	i.Testing = true
	i.Timeout = 50 * time.Millisecond

	err := exec(t, i, m, `for (;;) { _.sleep(10); }`, nil, nil)
	if err == nil {
		t.Fatal("didn't timeout")
	}
	if msg := err.Error(); msg != InterruptedMessage {
		t.Fatalf("surprised by \"%s\"", msg)
	}
}

func TestActionsError(t *testing.T) {
	_, m, _ := testModule(t)
	for _, code := range []string{
		`likes + tacos; return null;`,
		`return 42;`,
	} {
		if err := exec(t, NewInterpreter(), m, code, nil, nil); err == nil {
			t.Fatalf("%s didn't protest", code)
		}
	}
	if _, err := NewInterpreter().Compile(context.Background(), `return {`); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsCronNext(t *testing.T) {
	_, m, _ := testModule(t)

	code := fmt.Sprintf(`return {next: _.cronNext("%s")};`, "* 0 * * *")
	if err := exec(t, NewInterpreter(), m, code, nil, nil); err != nil {
		t.Fatal(err)
	}
	s, is := prop(m.Buffer(), "next").(string)
	if !is {
		t.Fatal(m.Buffer())
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		t.Fatal(err)
	}

	code = fmt.Sprintf(`return {next: _.cronNext("%s")};`, "bad")
	if err := exec(t, NewInterpreter(), m, code, nil, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsUtilities(t *testing.T) {
	e, m, logged := testModule(t)
	if err := e.SetGoal(`count {n 3}`); err != nil {
		t.Fatal(err)
	}

	code := `
_.log({hello: "world"});
var bs = _.match("count {n ?x}");
var none = _.match("count {n 4}");
return {x: bs.x, none: none === null, id: _.gensym(), q: _.esc("a b")};
`
	if err := exec(t, NewInterpreter(), m, code, nil, nil); err != nil {
		t.Fatal(err)
	}
	c := m.Buffer()
	if prop(c, "x") != 3.0 || prop(c, "none") != true || prop(c, "q") != "a+b" {
		t.Fatal(c)
	}
	if id, _ := prop(c, "id").(string); !chunks.IsGensym(id) {
		t.Fatal(id)
	}
	if len(*logged) != 1 || (*logged)[0] != `{"hello":"world"}` {
		t.Fatal(*logged)
	}
}

func TestEval(t *testing.T) {
	_, m, _ := testModule(t)
	eval := NewInterpreter().Eval()

	values := chunks.NewProps("code", "return {n: _.values.n * 2};", "n", 21)
	if err := eval.Exec(m, chunks.NewChunk("said", ""), values, match.NewBindings()); err != nil {
		t.Fatal(err)
	}
	if prop(m.Buffer(), "n") != 42.0 {
		t.Fatal(m.Buffer())
	}

	if err := eval.Exec(m, chunks.NewChunk("said", ""), &chunks.Props{}, match.NewBindings()); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestLibrary(t *testing.T) {
	src := `
libraries:
  util: |
    function inc(n) { return n + 1; }
algorithms:
  increment:
    requires: util
    code: "return {n: inc(_.values.n)};"
  twice:
    requires:
      - util
    code: "return {n: inc(inc(_.values.n))};"
`
	lib, err := ParseLibrary([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	as, err := NewInterpreter().CompileLibrary(context.Background(), lib)
	if err != nil {
		t.Fatal(err)
	}

	_, m, _ := testModule(t)
	for name, want := range map[string]float64{"increment": 8, "twice": 9} {
		a, have := as[name]
		if !have {
			t.Fatal(name)
		}
		if err := a.Exec(m, chunks.NewChunk("said", ""), chunks.NewProps("n", 7), match.NewBindings()); err != nil {
			t.Fatal(err)
		}
		if got := prop(m.Buffer(), "n"); got != want {
			t.Fatal(name, got)
		}
	}

	lib.Algorithms["broken"] = map[string]interface{}{"code": "return 1;", "requires": "nope"}
	if _, err = NewInterpreter().CompileLibrary(context.Background(), lib); err == nil {
		t.Fatal("didn't protest")
	}
}
