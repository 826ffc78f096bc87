package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("returns code of wrapped domain error", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeValidation, "bad input"))
		assert.Equal(t, CodeValidation, CodeOf(err))
		assert.True(t, HasCode(err, CodeValidation))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.False(t, HasCode(err, CodeValidation))
	})
}

func TestMessageOfHidesCause(t *testing.T) {
	err := Wrap(errors.New("cipher: message authentication failed"), CodeProtocol, "service unavailable")
	assert.Equal(t, "service unavailable", MessageOf(err))
	assert.Contains(t, err.Error(), "message authentication failed")
}

func TestRetryAndGuidanceClasses(t *testing.T) {
	cases := []struct {
		code      Code
		retryable bool
		guidance  bool
	}{
		{CodeTimeout, true, false},
		{CodeTransport, true, false},
		{CodeProtocol, false, false},
		{CodeValidation, false, true},
		{CodeIdentityResolution, false, true},
		{CodeConfiguration, false, true},
		{CodeInternal, false, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			err := New(tc.code, "x")
			assert.Equal(t, tc.retryable, IsRetryable(err))
			assert.Equal(t, tc.guidance, NeedsGuidance(err))
		})
	}
}
