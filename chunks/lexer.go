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

package chunks

import (
	"encoding/json"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tNewline
	tWord
	tString
	tVar
	tPunct
)

type token struct {
	kind tokenKind

	// text is the word, the variable name (without '?'), the
	// decoded string, or the punctuation.
	text string

	line, col int
}

func (t token) is(punct string) bool {
	return t.kind == tPunct && t.text == punct
}

func (t token) describe() string {
	switch t.kind {
	case tEOF:
		return "end of input"
	case tNewline:
		return "line break"
	case tString:
		return quote(t.text)
	case tVar:
		return "?" + t.text
	}
	return `"` + t.text + `"`
}

func isWordRune(r rune) bool {
	switch r {
	case '_', '.', '-', '/', ':', '@', '*':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lex returns the tokens of the source, ending with tEOF.
func lex(src string) ([]token, error) {
	var (
		toks      []token
		line, col = 1, 1
		i         = 0
	)

	fail := func(msg string) error {
		return &SyntaxError{Line: line, Column: col, Msg: msg}
	}

	advance := func(n int) {
		i += n
		col += n
	}

	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == '\n':
			toks = append(toks, token{kind: tNewline, line: line, col: col})
			i += size
			line++
			col = 1
		case r == ' ' || r == '\t' || r == '\r':
			advance(size)
		case r == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case r == '"':
			j := i + 1
			for ; j < len(src); j++ {
				if src[j] == '\\' {
					j++
					continue
				}
				if src[j] == '"' || src[j] == '\n' {
					break
				}
			}
			if j >= len(src) || src[j] != '"' {
				return nil, fail("unterminated string")
			}
			var s string
			if err := json.Unmarshal([]byte(src[i:j+1]), &s); err != nil {
				return nil, fail("bad string: " + err.Error())
			}
			toks = append(toks, token{kind: tString, text: s, line: line, col: col})
			advance(j + 1 - i)
		case r == '?':
			j := i + 1
			for j < len(src) {
				r, size := utf8.DecodeRuneInString(src[j:])
				if !isWordRune(r) {
					break
				}
				j += size
			}
			if j == i+1 {
				return nil, fail("variable without a name")
			}
			toks = append(toks, token{kind: tVar, text: src[i+1 : j], line: line, col: col})
			advance(j - i)
		case r == '{' || r == '}' || r == ';' || r == ',' || r == '!':
			toks = append(toks, token{kind: tPunct, text: string(r), line: line, col: col})
			advance(size)
		case r == '=':
			if i+1 < len(src) && src[i+1] == '>' {
				toks = append(toks, token{kind: tPunct, text: "=>", line: line, col: col})
				advance(2)
				continue
			}
			return nil, fail(`unexpected "="`)
		case isWordRune(r):
			j := i
			for j < len(src) {
				r, size := utf8.DecodeRuneInString(src[j:])
				if !isWordRune(r) {
					break
				}
				j += size
			}
			toks = append(toks, token{kind: tWord, text: src[i:j], line: line, col: col})
			advance(j - i)
		default:
			return nil, fail("unexpected " + quote(string(r)))
		}
	}
	toks = append(toks, token{kind: tEOF, line: line, col: col})
	return toks, nil
}
