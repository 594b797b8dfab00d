// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taibuivan/orm1go/orm/ormerr"
)

// Rendered is the text and parameter-position metadata for one rendered
// statement. ParamOrder lists every ParamID encountered during rendering in
// the order its first occurrence allocated a positional slot — index i
// corresponds to placeholder "$i+1".
type Rendered struct {
	SQL        string
	ParamOrder []ParamID
}

// Args resolves a ParamMap into the positional argument slice expected by
// the backend, in the order established by [Rendered.ParamOrder]. A ParamID
// referenced by the statement but absent from m is an invariant violation:
// the statement-building code, not the caller, is responsible for supplying
// every parameter a rendered statement names.
func (r Rendered) Args(m ParamMap) ([]any, error) {
	args := make([]any, len(r.ParamOrder))
	for i, id := range r.ParamOrder {
		v, ok := m[id]
		if !ok {
			return nil, ormerr.InvariantViolation(fmt.Sprintf("no value bound for parameter slot $%d", i+1))
		}
		args[i] = v
	}
	return args, nil
}

// renderer is stateful over exactly one statement: it remembers which
// ParamID occupies which positional slot so repeated references to the same
// parameter render as the same "$k".
type renderer struct {
	locations map[ParamID]int
	order     []ParamID
	buf       strings.Builder
}

func newRenderer() *renderer {
	return &renderer{locations: make(map[ParamID]int)}
}

func (r *renderer) finish() Rendered {
	return Rendered{SQL: r.buf.String(), ParamOrder: r.order}
}

func (r *renderer) slot(id ParamID) int {
	if pos, ok := r.locations[id]; ok {
		return pos
	}
	r.order = append(r.order, id)
	pos := len(r.order)
	r.locations[id] = pos
	return pos
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// writeName renders a Name, splitting on literal "." to preserve
// "schema.table" spellings while quoting each segment independently.
func (r *renderer) writeName(n Name) {
	parts := strings.Split(n.Ident, ".")
	for i, p := range parts {
		if i > 0 {
			r.buf.WriteByte('.')
		}
		r.buf.WriteString(quoteIdent(p))
	}
}

func (r *renderer) writeQName(n QName) {
	r.buf.WriteString(quoteIdent(n.Qualifier))
	r.buf.WriteByte('.')
	r.buf.WriteString(quoteIdent(n.Ident))
}

// writeNode renders a single expression Node into the buffer.
func (r *renderer) writeNode(n Node) error {
	switch v := n.(type) {
	case Name:
		r.writeName(v)
	case QName:
		r.writeQName(v)
	case Text:
		r.buf.WriteString(v.Literal)
	case Param:
		r.buf.WriteByte('$')
		r.buf.WriteString(strconv.Itoa(r.slot(v.ID)))
	case All:
		if len(v.Children) == 0 {
			return ormerr.InvariantViolation("All() requires at least one child")
		}
		return r.writeJoined(v.Children, " AND ")
	case Any:
		if len(v.Children) == 0 {
			return ormerr.InvariantViolation("Any() requires at least one child")
		}
		return r.writeJoined(v.Children, " OR ")
	case Eq:
		return r.writeBinary(v.Left, " = ", v.Right)
	case Lt:
		return r.writeBinary(v.Left, " < ", v.Right)
	case Gt:
		return r.writeBinary(v.Left, " > ", v.Right)
	case IsNull:
		r.buf.WriteByte('(')
		if err := r.writeNode(v.Expr); err != nil {
			return err
		}
		r.buf.WriteString(" IS NULL)")
	case IsNotNull:
		r.buf.WriteByte('(')
		if err := r.writeNode(v.Expr); err != nil {
			return err
		}
		r.buf.WriteString(" IS NOT NULL)")
	case Fragment:
		for _, c := range v.Children {
			if err := r.writeNode(c); err != nil {
				return err
			}
		}
	default:
		return ormerr.InvariantViolation(fmt.Sprintf("ast: unrenderable node type %T", n))
	}
	return nil
}

func (r *renderer) writeJoined(children []Node, sep string) error {
	r.buf.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			r.buf.WriteString(sep)
		}
		if err := r.writeNode(c); err != nil {
			return err
		}
	}
	r.buf.WriteByte(')')
	return nil
}

func (r *renderer) writeBinary(left Node, op string, right Node) error {
	r.buf.WriteByte('(')
	if err := r.writeNode(left); err != nil {
		return err
	}
	r.buf.WriteString(op)
	if err := r.writeNode(right); err != nil {
		return err
	}
	r.buf.WriteByte(')')
	return nil
}

// RenderExpr renders a bare expression Node outside of any statement (used
// by the tests that check single expressions and parsed fragments).
func RenderExpr(n Node) (Rendered, error) {
	r := newRenderer()
	if err := r.writeNode(n); err != nil {
		return Rendered{}, err
	}
	return r.finish(), nil
}

// RenderSelect renders a full SELECT statement in fixed clause order.
func RenderSelect(s *Select) (Rendered, error) {
	r := newRenderer()
	r.buf.WriteString("SELECT ")
	for i, c := range s.Columns {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		if err := r.writeNode(c); err != nil {
			return Rendered{}, err
		}
	}
	r.buf.WriteString(" FROM ")
	if err := r.writeNode(s.From.Ident()); err != nil {
		return Rendered{}, err
	}
	r.buf.WriteString(" AS ")
	r.buf.WriteString(quoteIdent(s.Alias))

	for _, j := range s.Joins {
		switch j.Kind {
		case LeftJoin:
			r.buf.WriteString(" LEFT JOIN ")
		default:
			r.buf.WriteString(" JOIN ")
		}
		if err := r.writeNode(j.Target); err != nil {
			return Rendered{}, err
		}
		r.buf.WriteString(" AS ")
		r.buf.WriteString(quoteIdent(j.Alias))
		r.buf.WriteString(" ON ")
		if err := r.writeNode(j.On); err != nil {
			return Rendered{}, err
		}
	}

	if s.Where != nil {
		r.buf.WriteString(" WHERE ")
		if err := r.writeNode(s.Where); err != nil {
			return Rendered{}, err
		}
	}

	if len(s.GroupBy) > 0 {
		r.buf.WriteString(" GROUP BY ")
		for i, c := range s.GroupBy {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			if err := r.writeNode(c); err != nil {
				return Rendered{}, err
			}
		}
	}

	if s.Having != nil {
		r.buf.WriteString(" HAVING ")
		if err := r.writeNode(s.Having); err != nil {
			return Rendered{}, err
		}
	}

	if len(s.OrderBy) > 0 {
		r.buf.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			if err := r.writeNode(o.Expr); err != nil {
				return Rendered{}, err
			}
			if o.Ascending {
				r.buf.WriteString(" ASC")
			} else {
				r.buf.WriteString(" DESC")
			}
			if o.NullsLast {
				r.buf.WriteString(" NULLS LAST")
			} else {
				r.buf.WriteString(" NULLS FIRST")
			}
		}
	}

	if s.Limit != nil {
		r.buf.WriteString(" LIMIT ")
		if err := r.writeNode(s.Limit); err != nil {
			return Rendered{}, err
		}
	}

	if s.Offset != nil {
		r.buf.WriteString(" OFFSET ")
		if err := r.writeNode(s.Offset); err != nil {
			return Rendered{}, err
		}
	}

	return r.finish(), nil
}

// RenderInsert renders an INSERT INTO statement.
func RenderInsert(s *Insert) (Rendered, error) {
	r := newRenderer()
	r.buf.WriteString("INSERT INTO ")
	if err := r.writeNode(s.Into.Ident()); err != nil {
		return Rendered{}, err
	}
	r.buf.WriteString(" (")
	for i, c := range s.Columns {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		r.buf.WriteString(quoteIdent(c))
	}
	r.buf.WriteString(") VALUES (")
	for i, v := range s.Values {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		if err := r.writeNode(v); err != nil {
			return Rendered{}, err
		}
	}
	r.buf.WriteByte(')')
	if err := r.writeReturning(s.Returning); err != nil {
		return Rendered{}, err
	}
	return r.finish(), nil
}

// RenderUpdate renders an UPDATE statement.
func RenderUpdate(s *Update) (Rendered, error) {
	r := newRenderer()
	r.buf.WriteString("UPDATE ")
	if err := r.writeNode(s.Table.Ident()); err != nil {
		return Rendered{}, err
	}
	r.buf.WriteString(" SET ")
	for i, set := range s.Sets {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		r.buf.WriteString(quoteIdent(set.Column))
		r.buf.WriteString(" = ")
		if err := r.writeNode(set.Expr); err != nil {
			return Rendered{}, err
		}
	}
	if s.Where != nil {
		r.buf.WriteString(" WHERE ")
		if err := r.writeNode(s.Where); err != nil {
			return Rendered{}, err
		}
	}
	if err := r.writeReturning(s.Returning); err != nil {
		return Rendered{}, err
	}
	return r.finish(), nil
}

// RenderDelete renders a DELETE FROM statement.
func RenderDelete(s *Delete) (Rendered, error) {
	r := newRenderer()
	r.buf.WriteString("DELETE FROM ")
	if err := r.writeNode(s.From.Ident()); err != nil {
		return Rendered{}, err
	}
	if s.Where != nil {
		r.buf.WriteString(" WHERE ")
		if err := r.writeNode(s.Where); err != nil {
			return Rendered{}, err
		}
	}
	if err := r.writeReturning(s.Returning); err != nil {
		return Rendered{}, err
	}
	return r.finish(), nil
}

func (r *renderer) writeReturning(returning []Node) error {
	if len(returning) == 0 {
		return nil
	}
	r.buf.WriteString(" RETURNING ")
	for i, c := range returning {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		if err := r.writeNode(c); err != nil {
			return err
		}
	}
	return nil
}
