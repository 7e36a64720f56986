// Package ir defines the AST statement and expression shapes the lifter
// produces: tagged-variant Expression (Instruction, Variable reference, or
// literal Constant) and Statement (Assignment, ExpressionStatement, or Phi),
// plus the AstVariable family (external, stack-slot, phi-slot, versioned).
//
// Expression and Statement are interfaces sealed by unexported marker
// methods (isExpression/isStatement), with one Go type per variant;
// AstVariable is a single struct whose Kind field selects the active shape.
// Every variant has a String() method for debugging output.
package ir
