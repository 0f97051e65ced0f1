package inspect

import (
	"errors"
	"fmt"
	"strings"
)

// CheckError captures engine metadata alongside the originating error.
type CheckError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *CheckError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("inspect: %s engine %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *CheckError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "inspect:") {
		return err
	}
	return fmt.Errorf("inspect: %s engine: %w", engine, err)
}

func wrapCheckError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		return err
	}

	return &CheckError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
