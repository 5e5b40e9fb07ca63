package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "module not found")
		if err.Error() != "[NOT_FOUND] module not found" {
			t.Errorf("expected [NOT_FOUND] module not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeParseFailed, "parse module")
		expected := "[PARSE_FAILED] parse module: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeUnresolvableCycle, "stuck")
		if !IsCode(err, CodeUnresolvableCycle) {
			t.Error("expected IsCode to return true for CodeUnresolvableCycle")
		}
		if IsCode(err, CodeOrphanedDependent) {
			t.Error("expected IsCode to return false for CodeOrphanedDependent")
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := New(CodeMissingSource, "no code")
		err = AddContext(err, CtxPath, "src/a.js")
		err = AddContext(err, CtxModule, "a")
		expected := "[MISSING_SOURCE] no code {module=a, path=src/a.js}"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextToForeignError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "prepare")
		code, ok := CodeOf(err)
		if !ok || code != CodeInternal {
			t.Errorf("expected INTERNAL_ERROR, got %q (ok=%v)", code, ok)
		}
	})
}
