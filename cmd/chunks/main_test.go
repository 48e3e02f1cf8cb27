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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "chunks.db")

	out, err := execute(t, "run",
		"--rules", "../../testdata/counting/rules.chk",
		"--facts", "../../testdata/counting/facts.chk",
		"--goal", "count {state start; start 3; end 8}",
		"--seed", "1",
		"--db", db,
		"--host", "counter")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("3\n4\n5\n6\n7\n8\nno matching rules\n", out); diff != "" {
		t.Fatal(diff)
	}

	out, err = execute(t, "snapshot", "show", "--db", db, "--host", "counter")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# module facts", "# module rules", "# buffer count {"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}

	if _, err = execute(t, "snapshot", "rm", "--db", db, "--host", "counter"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "snapshot", "show", "--db", db, "--host", "counter")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Fatal(out)
	}
}

func TestMatch(t *testing.T) {
	out, err := execute(t, "match", "count {n ?n}", "count {n 3}")
	if err != nil {
		t.Fatal(err)
	}
	if out != "?n 3\n" {
		t.Fatal(out)
	}

	if _, err = execute(t, "match", "count {n 4}", "count {n 3}"); err != ErrNoMatch {
		t.Fatal(err)
	}

	out, err = execute(t, "match", "--graph", "../../testdata/counting/facts.chk", "increment {number 3; successor ?s}")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "?s 4\n") {
		t.Fatal(out)
	}
}

func TestFmtAndRender(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "colors.chk")
	if err := os.WriteFile(src, []byte("color red {rgb \"#f00\"}\n\ncolor blue {rgb \"#00f\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "fmt", "-c", src)
	if err != nil {
		t.Fatal(err)
	}
	want := "color red {rgb \"#f00\"}\ncolor blue {rgb \"#00f\"}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatal(diff)
	}

	out, err = execute(t, "render", "--format", "yaml", src)
	if err != nil {
		t.Fatal(err)
	}
	yml := filepath.Join(dir, "colors.yaml")
	if err = os.WriteFile(yml, []byte(out), 0644); err != nil {
		t.Fatal(err)
	}

	// Back through YAML.
	out, err = execute(t, "fmt", "-c", yml)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "color red {rgb ") {
		t.Fatal(out)
	}

	if _, err = execute(t, "render", "--format", "nope", src); err == nil {
		t.Fatal("should have complained")
	}
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", "../../testdata/counting/rules.chk")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "rules: 3\n") {
		t.Fatal(out)
	}
}
