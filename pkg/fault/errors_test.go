package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalExit(t *testing.T) {
	expected := 99
	code := ExitStatus(Fatal(expected))
	if code != expected {
		t.Fatalf("Expected code %v but got %v", expected, code)
	}
}

func TestFatalfWraps(t *testing.T) {
	err := Fatalf(3, "boom: %w", ErrProtocol)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, 3, ExitStatus(err))
	assert.Equal(t, "boom: protocol violation", err.Error())
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error is internal", err: errors.New("oops"), want: ExitInternal},
		{name: "user error", err: Userf("File not found: %s", "a.js"), want: ExitUser},
		{name: "wrapped user error", err: fmt.Errorf("ctx: %w", Userf("%w", ErrStaleRun)), want: ExitUser},
		{name: "silent exit", err: Exit(7), want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitStatus(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	err := Userf("%w: %s", ErrFileNotFound, "/app/a.js")
	assert.True(t, IsUser(err))
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, "file not found: /app/a.js", err.Error())

	assert.False(t, IsUser(errors.New("nope")))
	assert.False(t, IsSilent(err))
	assert.True(t, IsSilent(fmt.Errorf("wrapped: %w", Exit(2))))
}
