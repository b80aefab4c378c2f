package errcore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureConflictIsNotFatal(t *testing.T) {
	called := false
	old := Fatal
	Fatal = func(*CoreError) { called = true }
	defer func() { Fatal = old }()

	err := SignatureConflictf(CodeSignatureArityConflict, "symbol %q redeclared with arity %d", "f", 2).
		WithNote("previously declared with arity 1").
		WithHelp("use a different name or match the existing arity")

	assert.False(t, called, "constructing a CoreError must never invoke Fatal")
	assert.Equal(t, SignatureConflict, err.Kind)
	assert.Contains(t, err.Error(), "E1001")
}

func TestInvariantViolationInvokesFatal(t *testing.T) {
	var caught *CoreError
	old := Fatal
	Fatal = func(e *CoreError) { caught = e }
	defer func() { Fatal = old }()

	InvariantViolation("binding already-bound variable %s", "X")

	if caught == nil {
		t.Fatal("expected Fatal to be invoked")
	}
	assert.Equal(t, KindInvariantViolation, caught.Kind)
	assert.NotNil(t, caught.Unwrap(), "invariant violations must carry a wrapped cause")
}

func TestReporterFormatsNotesAndHelp(t *testing.T) {
	color := NewReporter()
	err := TypeMismatchf("cannot bind variable of sort %s to term of sort %s", "$i", "$o").
		WithNote("sorts must match exactly").
		WithHelp("check the equation's declared sort")

	out := color.Format(err)
	assert.True(t, strings.Contains(out, "E1010"))
	assert.True(t, strings.Contains(out, "note:"))
	assert.True(t, strings.Contains(out, "help:"))
}
