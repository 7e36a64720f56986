// File: decorator.go
// Role: The AST-ISA decorator: adapts an ISA[I] to operate on lifted
// ir.Statement[I] values by delegating to the wrapped ISA for
// Instruction-bearing statements and returning zero/empty for Phi and for
// statements whose expression is not an instruction, whose writes are
// synthetic rather than instruction-declared.
package isa

import (
	"github.com/Charterino/Echo/dfg"
	"github.com/Charterino/Echo/ir"
)

// AstDecorator composes (rather than extends) a wrapped ISA[I], presenting
// the same five-method capability surface over ir.Statement[I] instead of
// the raw instruction type.
type AstDecorator[I any] struct {
	Wrapped ISA[I]
}

// NewAstDecorator wraps isa for use against lifted statements.
func NewAstDecorator[I any](wrapped ISA[I]) *AstDecorator[I] {
	return &AstDecorator[I]{Wrapped: wrapped}
}

// Offset returns the underlying instruction's offset for an Assignment or
// ExpressionStatement wrapping an InstructionExpr; synthetic statements
// (Phi, or any statement not ultimately wrapping an instruction) have no
// ISA-declared offset and return 0.
func (d *AstDecorator[I]) Offset(stmt ir.Statement[I]) int64 {
	instr, ok := instructionOf(stmt)
	if !ok {
		return 0
	}
	return d.Wrapped.Offset(instr)
}

// StackPushCount delegates for instruction-backed statements; returns 0 for
// Phi and any statement whose expression is not an InstructionExpr (its
// push behavior is already fully captured by its AstVariable targets).
func (d *AstDecorator[I]) StackPushCount(stmt ir.Statement[I]) int {
	instr, ok := instructionOf(stmt)
	if !ok {
		return 0
	}
	return d.Wrapped.StackPushCount(instr)
}

// StackPopCount mirrors StackPushCount.
func (d *AstDecorator[I]) StackPopCount(stmt ir.Statement[I]) int {
	instr, ok := instructionOf(stmt)
	if !ok {
		return 0
	}
	return d.Wrapped.StackPopCount(instr)
}

// WrittenVariables delegates for instruction-backed statements; a Phi's
// write is already explicit in its Target field, not instruction-declared,
// so it returns nil here.
func (d *AstDecorator[I]) WrittenVariables(stmt ir.Statement[I]) []dfg.Variable {
	instr, ok := instructionOf(stmt)
	if !ok {
		return nil
	}
	return d.Wrapped.WrittenVariables(instr)
}

// ReadVariables mirrors WrittenVariables.
func (d *AstDecorator[I]) ReadVariables(stmt ir.Statement[I]) []dfg.Variable {
	instr, ok := instructionOf(stmt)
	if !ok {
		return nil
	}
	return d.Wrapped.ReadVariables(instr)
}

// instructionOf extracts the wrapped raw instruction from a statement, if
// its expression is an InstructionExpr.
func instructionOf[I any](stmt ir.Statement[I]) (I, bool) {
	var zero I
	var expr ir.Expression[I]

	switch s := stmt.(type) {
	case *ir.Assignment[I]:
		expr = s.Expr
	case *ir.ExpressionStatement[I]:
		expr = s.Expr
	default:
		return zero, false
	}

	instrExpr, ok := expr.(*ir.InstructionExpr[I])
	if !ok {
		return zero, false
	}
	return instrExpr.Instruction, true
}
