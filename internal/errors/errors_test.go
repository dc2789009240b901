package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesUnique(t *testing.T) {
	codes := []string{ErrConfig, ErrTransport, ErrSSH}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(ErrConfig, "refresh.interval must be positive", ""),
			want: "✗ refresh.interval must be positive\n",
		},
		{
			name: "message and suggestion",
			err:  New(ErrConfig, "bad url", "Use ws://host:9090"),
			want: "✗ bad url\n  hint:  Use ws://host:9090\n",
		},
		{
			name: "with cause",
			err:  WrapWithCode(fmt.Errorf("connection refused"), ErrTransport, "rosbridge unreachable", "Is rosbridge_server running?"),
			want: "✗ rosbridge unreachable\n  cause: connection refused\n  hint:  Is rosbridge_server running?\n",
		},
		{
			name: "nested error is indented",
			err:  Wrap(New(ErrSSH, "tunnel down", "Check the radio link"), "subscribe failed"),
			want: "✗ subscribe failed\n  cause: ✗ tunnel down\n    hint:  Check the radio link\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_DefaultsToTransport(t *testing.T) {
	cause := fmt.Errorf("eof")
	err := Wrap(cause, "session dropped")

	assert.Equal(t, ErrTransport, err.Code)
	assert.Equal(t, cause, err.Cause)
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := WrapWithCode(sentinel, ErrSSH, "tunnel failed", "")

	assert.True(t, errors.Is(err, sentinel))

	var dsErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &dsErr))
	assert.Equal(t, ErrSSH, dsErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "x", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrSSH))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", err), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
	assert.False(t, IsCode(errors.New("plain"), ErrConfig))
}
