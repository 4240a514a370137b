package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesTypeMessageAndStack(t *testing.T) {
	err := New(ErrorTypeTiming, "tick overran tolerance")

	assert.Equal(t, ErrorTypeTiming, err.Type)
	assert.Equal(t, "timing: tick overran tolerance", err.Error())
	assert.Nil(t, err.Unwrap())
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk full")

	tests := []struct {
		name    string
		err     *Error
		want    string
		wantNil bool
	}{
		{
			name: "wraps a plain error",
			err:  Wrap(cause, ErrorTypeFile, "failed to flush rows"),
			want: "file: failed to flush rows: disk full",
		},
		{
			name:    "wrapping nil yields nil",
			err:     Wrap(nil, ErrorTypeFile, "ignored"),
			wantNil: true,
		},
		{
			name: "rewraps with a new type",
			err:  Wrap(New(ErrorTypeData, "bad cell"), ErrorTypeFile, "row rejected"),
			want: "file: row rejected: data: bad cell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantNil {
				assert.Nil(t, tt.err)
				return
			}
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.want, tt.err.Error())
			assert.NotEmpty(t, tt.err.Stack)
		})
	}
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := stderrors.New("no such device")
	err := Wrap(cause, ErrorTypeFile, "failed to open session file")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrapKeepsOriginalStack(t *testing.T) {
	inner := New(ErrorTypeData, "unparseable serial")
	outer := Wrap(inner, ErrorTypeFile, "row rejected")

	require.NotEmpty(t, inner.Stack)
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeConfig, "flush cadence out of range").
		WithDetail("flush_every", 0).
		WithDetail("boat_id", "0")

	assert.Equal(t, 0, err.Details["flush_every"])
	assert.Equal(t, "0", err.Details["boat_id"])
}

func TestIsType(t *testing.T) {
	fileErr := New(ErrorTypeFile, "failed to sync session file")

	tests := []struct {
		name string
		err  error
		typ  ErrorType
		want bool
	}{
		{"matching type", fileErr, ErrorTypeFile, true},
		{"different type", fileErr, ErrorTypeTiming, false},
		{"through fmt.Errorf chain", fmt.Errorf("session aborted: %w", fileErr), ErrorTypeFile, true},
		{"through rewrap outer type wins", Wrap(fileErr, ErrorTypeInternal, "loop stopped"), ErrorTypeInternal, true},
		{"plain error", stderrors.New("disk full"), ErrorTypeFile, false},
		{"nil error", nil, ErrorTypeFile, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.typ))
		})
	}
}
