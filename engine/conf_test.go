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

package engine

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConf(t *testing.T) {
	conf, err := ParseConf([]byte(`
singleStep: true
seed: 7
activation:
  halfLife: 3600
  noiseGrace: 0
`))
	if err != nil {
		t.Fatal(err)
	}
	if !conf.SingleStep || conf.Seed != 7 || conf.MaxCycles != DefaultMaxCycles {
		t.Fatalf("%#v", conf)
	}
	a := conf.Activation
	if a.HalfLife != 3600 || a.NoiseGrace != 0 || a.Tau != 24*60*60 || a.MinStrength != 0.02 {
		t.Fatalf("%#v", a)
	}
}

func TestReadConf(t *testing.T) {
	dir, err := ioutil.TempDir("", "conf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	filename := filepath.Join(dir, "conf.yaml")
	if err = ioutil.WriteFile(filename, []byte("maxCycles: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}
	conf, err := ReadConf(filename)
	if err != nil {
		t.Fatal(err)
	}
	if conf.MaxCycles != 12 {
		t.Fatal(conf.MaxCycles)
	}

	if _, err = ReadConf(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected an error")
	}
	if _, err = ParseConf([]byte("seed: [")); err == nil {
		t.Fatal("expected an error")
	}
}
