package provisioning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"validation", NewError(KindValidationFailed, "gather", errors.New("bad")), 1},
		{"user abort", NewError(KindUserAborted, "confirm", nil), 1},
		{"precondition", NewError(KindPreconditionNotMet, "run", nil), 3},
		{"environment", NewError(KindEnvironmentQueryFailed, "validate", nil), 3},
		{"execution", NewError(KindActionExecutionFailed, "run", nil), 2},
		{"unclassified", errors.New("boom"), 2},
		{"wrapped", fmt.Errorf("outer: %w", NewError(KindPreconditionNotMet, "run", nil)), 3},
		{"cancelled", fmt.Errorf("stop: %w", context.Canceled), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestError_Report(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	err := &Error{
		Kind:       KindActionExecutionFailed,
		Op:         "run",
		Action:     "partition/createGPT",
		Err:        cause,
		Stdout:     "partial\n",
		Stderr:     "Error: device busy\n",
		ExitCode:   1,
		Checkpoint: "/var/lib/archer/checkpoint.json",
	}

	assert.Equal(t, "run partition/createGPT: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)

	report := err.Report()
	assert.Contains(t, report, "ActionExecutionFailed: run partition/createGPT")
	assert.Contains(t, report, "--- stderr ---\nError: device busy\n")
	assert.Contains(t, report, "--- stdout ---\npartial\n")
	assert.Contains(t, report, "checkpoint: /var/lib/archer/checkpoint.json")
}

func TestErrorKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "PreconditionNotMet", KindPreconditionNotMet.String())
	assert.Equal(t, "Unknown", ErrorKind(42).String())
	assert.Equal(t, KindUnknown, KindOf(nil))
}
