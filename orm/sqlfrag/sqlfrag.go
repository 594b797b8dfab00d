// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sqlfrag parses user-supplied SQL fragments containing ":name"
placeholders into [ast.Fragment] nodes, sharing one [ast.ParamID] namespace
across every fragment parsed through the same [Context].

Tokenization recognizes single- and double-quoted strings (copied verbatim
as ast.Text), the "::" cast operator, ":name" placeholders, bare
identifier-like words, whitespace, and any other single punctuation
character. An unknown placeholder name fails with [ormerr.ParameterMissing]
before any statement reaches the backend.
*/
package sqlfrag

import (
	"unicode"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/ormerr"
)

// Context allocates fresh ParamIDs and remembers the ParamID assigned to
// each placeholder name, so that every fragment parsed through one Context
// — across multiple WHERE/HAVING/ORDER BY calls in a query builder, for
// instance — shares a single parameter namespace and reuses values.
type Context struct {
	Alloc    *ast.IDAllocator
	nameToID map[string]ast.ParamID
}

// NewContext returns a Context with its own private ID allocator and name
// namespace.
func NewContext() *Context {
	return &Context{Alloc: ast.NewIDAllocator(), nameToID: map[string]ast.ParamID{}}
}

// idFor returns the ParamID for name, allocating one on first use.
func (c *Context) idFor(name string) ast.ParamID {
	if id, ok := c.nameToID[name]; ok {
		return id
	}
	id := c.Alloc.Next()
	c.nameToID[name] = id
	return id
}

// Parse tokenizes text, resolving every ":name" placeholder against values.
// It returns the resulting Fragment node and a ParamMap containing only the
// ParamIDs this fragment referenced (callers merge ParamMaps across
// fragments sharing a Context). Parsing fails immediately — before building
// any partial AST the caller could mistakenly send to the backend — if a
// placeholder name is absent from values.
func (c *Context) Parse(text string, values map[string]any) (ast.Node, ast.ParamMap, error) {
	toks := tokenize(text)

	var children []Node
	params := ast.ParamMap{}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind == tokPlaceholder {
			v, ok := values[t.text]
			if !ok {
				return nil, nil, ormerr.ParameterMissing(t.text)
			}
			id := c.idFor(t.text)
			params[id] = v
			children = append(children, ast.Param{ID: id})
			continue
		}
		children = append(children, ast.Text{Literal: t.text})
	}

	return coalesce(children), params, nil
}

// Node is a type alias kept local to this file to avoid repeating the
// fully-qualified ast.Node in the tokenizer's intermediate slice type.
type Node = ast.Node

// coalesce merges adjacent Text nodes produced by the tokenizer into a
// single Text node, then wraps the result in a Fragment.
func coalesce(nodes []ast.Node) ast.Node {
	var merged []ast.Node
	for _, n := range nodes {
		if t, ok := n.(ast.Text); ok {
			if len(merged) > 0 {
				if prev, ok := merged[len(merged)-1].(ast.Text); ok {
					merged[len(merged)-1] = ast.Text{Literal: prev.Literal + t.Literal}
					continue
				}
			}
		}
		merged = append(merged, n)
	}
	return ast.Fragment{Children: merged}
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokPlaceholder
)

type token struct {
	kind tokenKind
	text string
}

// tokenize scans text into a sequence of tokens: placeholder references
// become tokPlaceholder (with the bare name, no leading colon); everything
// else — quoted strings, "::", identifiers, whitespace, punctuation — is
// copied through verbatim as tokText.
func tokenize(text string) []token {
	var toks []token
	runes := []rune(text)
	n := len(runes)
	i := 0

	emitText := func(s string) {
		if s == "" {
			return
		}
		toks = append(toks, token{kind: tokText, text: s})
	}

	for i < n {
		c := runes[i]

		switch {
		case c == '\'' || c == '"':
			start := i
			quote := c
			i++
			for i < n {
				if runes[i] == quote {
					i++
					break
				}
				i++
			}
			emitText(string(runes[start:i]))

		case c == ':' && i+1 < n && runes[i+1] == ':':
			emitText("::")
			i += 2

		case c == ':' && i+1 < n && isIdentStart(runes[i+1]):
			j := i + 1
			for j < n && isIdentPart(runes[j]) {
				j++
			}
			toks = append(toks, token{kind: tokPlaceholder, text: string(runes[i+1 : j])})
			i = j

		case unicode.IsSpace(c):
			j := i
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			emitText(string(runes[i:j]))
			i = j

		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(runes[j]) {
				j++
			}
			emitText(string(runes[i:j]))
			i = j

		default:
			emitText(string(c))
			i++
		}
	}

	return toks
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Names returns the set of placeholder names referenced by text, without
// resolving them against any values. Useful for validating a fragment ahead
// of time.
func Names(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, t := range tokenize(text) {
		if t.kind == tokPlaceholder && !seen[t.text] {
			seen[t.text] = true
			names = append(names, t.text)
		}
	}
	return names
}
