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

package bolt

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/chunks/storage"

	"github.com/google/go-cmp/cmp"
)

func TestStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "bolt")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	s := NewStorage(filepath.Join(dir, "chunks.db"), nil)
	if err = s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	if mss, err := s.GetHost(ctx, "h1"); err != nil || mss != nil {
		t.Fatal(mss, err)
	}
	if err = s.MakeHost(ctx, "h1"); err != nil {
		t.Fatal(err)
	}

	mss := []*storage.ModuleState{
		{Module: "facts", Graph: "color red {hue warm}\n", ReadOnly: true},
		{Module: "goal", Graph: "", Buffer: "count {n 1}"},
	}
	if err = s.WriteState(ctx, "h1", mss); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetHost(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(mss, got); diff != "" {
		t.Fatal(diff)
	}

	err = s.WriteState(ctx, "h1", []*storage.ModuleState{
		{Module: "goal", Deleted: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, err = s.GetHost(ctx, "h1"); err != nil || len(got) != 1 || got[0].Module != "facts" {
		t.Fatal(got, err)
	}

	if err = s.RemHost(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if got, err = s.GetHost(ctx, "h1"); err != nil || got != nil {
		t.Fatal(got, err)
	}
}
