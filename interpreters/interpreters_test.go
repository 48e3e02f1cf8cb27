package interpreters

import (
	"context"
	"io/ioutil"
	"testing"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"

	"github.com/google/go-cmp/cmp"
)

func load(t *testing.T, filename string) *chunks.Graph {
	t.Helper()
	src, err := ioutil.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	g, err := chunks.ParseGraph(string(src))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCountingWithLog(t *testing.T) {
	conf := engine.DefaultConf()
	conf.Seed = 1
	e := engine.NewEngine(conf, nil)
	var logged []string
	e.Log = func(msg string) {
		logged = append(logged, msg)
	}

	e.AddModule("facts", load(t, "../testdata/counting/facts.chk"), nil)
	e.AddModule(engine.RulesModule, load(t, "../testdata/counting/rules.chk"), nil)
	e.AddModule("console", nil, Standard())

	if err := e.SetGoal(`count {state start; start 3; end 8}`); err != nil {
		t.Fatal(err)
	}
	if _, err := e.RunUntilQuiet(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"3", "4", "5", "6", "7", "8", "no matching rules"}
	if diff := cmp.Diff(want, logged); diff != "" {
		t.Fatal(diff)
	}
}

func TestStandard(t *testing.T) {
	conf := engine.DefaultConf()
	conf.Seed = 1
	conf.SingleStep = true
	e := engine.NewEngine(conf, nil)
	var logged []string
	e.Log = func(msg string) {
		logged = append(logged, msg)
	}

	rules, err := chunks.ParseGraph(`
count {n ?n}
  => count {@do js; code "return {n: _.values.n + 1, was: _.values.n};"; n ?n},
  console {@module console; @do log; n ?n; note "hi there"},
  console {@module console; @do log; msg "hi there"},
  console {@module console; @do noop}
`)
	if err != nil {
		t.Fatal(err)
	}
	e.AddModule(engine.RulesModule, rules, nil)
	e.AddModule(engine.GoalModule, nil, Standard())
	console := e.AddModule("console", nil, Standard())

	if err = e.SetGoal(`count {n 1}`); err != nil {
		t.Fatal(err)
	}
	if err = e.Next(); err != nil {
		t.Fatal(err)
	}

	goal, _ := e.Module(engine.GoalModule)
	c := goal.Buffer()
	if v, _ := c.Value("n"); !chunks.Equal(v, chunks.Number(2)) {
		t.Fatal(c)
	}
	if v, _ := c.Value("was"); !chunks.Equal(v, chunks.Number(1)) {
		t.Fatal(c)
	}
	if goal.Status != engine.Okay || console.Status != engine.Okay {
		t.Fatal(goal.Status, console.Status)
	}

	want := []string{`console {n 1; note "hi there"}`, "hi there"}
	if diff := cmp.Diff(want, logged); diff != "" {
		t.Fatal(diff)
	}
}
