// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sqlfrag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/sqlfrag"
)

func TestParseResolvesPlaceholderAgainstValues(t *testing.T) {
	ctx := sqlfrag.NewContext()
	node, params, err := ctx.Parse("title = :title", map[string]any{"title": "hello"})
	require.NoError(t, err)

	rendered, err := ast.RenderExpr(node)
	require.NoError(t, err)
	assert.Equal(t, "title = $1", rendered.SQL)
	assert.Len(t, params, 1)
}

func TestParseFailsOnUnknownPlaceholder(t *testing.T) {
	ctx := sqlfrag.NewContext()
	_, _, err := ctx.Parse(":missing", map[string]any{})
	assert.Error(t, err)
}

func TestParseSharesOneParamIDAcrossRepeatedPlaceholderInSameContext(t *testing.T) {
	ctx := sqlfrag.NewContext()
	first, firstParams, err := ctx.Parse("a = :x", map[string]any{"x": 1})
	require.NoError(t, err)
	second, secondParams, err := ctx.Parse("b = :x", map[string]any{"x": 1})
	require.NoError(t, err)

	firstRendered, err := ast.RenderExpr(first)
	require.NoError(t, err)
	secondRendered, err := ast.RenderExpr(second)
	require.NoError(t, err)

	assert.Equal(t, "a = $1", firstRendered.SQL)
	assert.Equal(t, "b = $1", secondRendered.SQL)
	assert.Equal(t, firstParams, secondParams, "both fragments bind :x under the same ParamID")
}

func TestParsePreservesQuotedStringsVerbatim(t *testing.T) {
	ctx := sqlfrag.NewContext()
	node, _, err := ctx.Parse(`status = 'active' AND title = :title`, map[string]any{"title": "x"})
	require.NoError(t, err)

	rendered, err := ast.RenderExpr(node)
	require.NoError(t, err)
	assert.Equal(t, "status = 'active' AND title = $1", rendered.SQL)
}

func TestParsePreservesCastOperator(t *testing.T) {
	ctx := sqlfrag.NewContext()
	node, _, err := ctx.Parse("id::text = :id", map[string]any{"id": "1"})
	require.NoError(t, err)

	rendered, err := ast.RenderExpr(node)
	require.NoError(t, err)
	assert.Equal(t, "id::text = $1", rendered.SQL)
}

func TestNamesReturnsUniquePlaceholderNamesInFirstSeenOrder(t *testing.T) {
	names := sqlfrag.Names(":b = :a AND :b = :c")
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestNamesReturnsEmptyForTextWithNoPlaceholders(t *testing.T) {
	assert.Empty(t, sqlfrag.Names("title = 'x'"))
}
