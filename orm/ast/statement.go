// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ast

// TableRef identifies a table as stored in the database, with an optional
// schema qualifier.
type TableRef struct {
	Schema string
	Table  string
}

// Ident returns the Node form of the table reference (QName when a schema
// is present, Name otherwise).
func (t TableRef) Ident() Node {
	if t.Schema == "" {
		return Name{Ident: t.Table}
	}
	return QName{Qualifier: t.Schema, Ident: t.Table}
}

// JoinKind distinguishes an inner join from a left outer join.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Join is one JOIN clause in a Select: a target (a mapped table or a raw
// fragment, e.g. a subquery), an alias, and an ON condition.
type Join struct {
	Kind   JoinKind
	Target Node
	Alias  string
	On     Node
}

// OrderByTerm is one ORDER BY entry.
type OrderByTerm struct {
	Expr      Node
	Ascending bool
	NullsLast bool
}

// Select is a SELECT statement: projection, source, joins, filters,
// grouping, ordering and a LIMIT/OFFSET pair. Each optional clause is
// rendered only when non-nil/non-empty.
type Select struct {
	Columns []Node
	From    TableRef
	Alias   string
	Joins   []Join
	Where   Node
	GroupBy []Node
	Having  Node
	OrderBy []OrderByTerm
	Limit   Node
	Offset  Node
}

// Insert is an INSERT INTO statement with a RETURNING clause.
type Insert struct {
	Into       TableRef
	Columns    []string
	Values     []Node
	Returning  []Node
}

// SetClause is one "column = expr" pair in an UPDATE's SET list.
type SetClause struct {
	Column string
	Expr   Node
}

// Update is an UPDATE statement with a RETURNING clause.
type Update struct {
	Table     TableRef
	Sets      []SetClause
	Where     Node
	Returning []Node
}

// Delete is a DELETE statement with a RETURNING clause.
type Delete struct {
	From      TableRef
	Where     Node
	Returning []Node
}
