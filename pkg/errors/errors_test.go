package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	cause := errors.New(`line 3: expected 4 fields`)
	tests := []struct {
		name    string
		err     *Error
		code    Code
		message string
		text    string
		cause   error
	}{
		{
			name:    "new",
			err:     New(ErrCodeInvalidConfig, "border %.1f exceeds field width %d", 90.0, 160),
			code:    ErrCodeInvalidConfig,
			message: "border 90.0 exceeds field width 160",
			text:    "INVALID_CONFIG: border 90.0 exceeds field width 160",
		},
		{
			name:    "wrap",
			err:     Wrap(ErrCodeParse, cause, "read table %s", "north.csv"),
			code:    ErrCodeParse,
			message: "read table north.csv",
			text:    "PARSE_ERROR: read table north.csv: line 3: expected 4 fields",
			cause:   cause,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code || tt.err.Message != tt.message {
				t.Errorf("got %s %q, want %s %q", tt.err.Code, tt.err.Message, tt.code, tt.message)
			}
			if tt.err.Error() != tt.text {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.text)
			}
			if errors.Unwrap(tt.err) != tt.cause {
				t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(tt.err), tt.cause)
			}
			if tt.cause != nil && !errors.Is(tt.err, tt.cause) {
				t.Error("errors.Is should reach the cause")
			}
		})
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidConfig, "test"),
			code:     ErrCodeInvalidConfig,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidConfig, "test"),
			code:     ErrCodeParse,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeParse, New(ErrCodeInvalidConfig, "inner"), "outer"),
			code:     ErrCodeParse,
			expected: true,
		},
		{
			name:     "exhaustion error",
			err:      &ExhaustionError{Attempts: 10},
			code:     ErrCodeConstraintExhausted,
			expected: true,
		},
		{
			name:     "exhaustion error behind fmt wrap",
			err:      fmt.Errorf("arrange: %w", &ExhaustionError{Attempts: 10}),
			code:     ErrCodeConstraintExhausted,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidConfig,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeUnknownLabel, "test"), ErrCodeUnknownLabel},
		{"exhaustion", &ExhaustionError{Attempts: 1}, ErrCodeConstraintExhausted},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidConfig, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
		{
			"coded cause",
			Wrap(ErrCodeParse, New(ErrCodeParse, `invalid block id "XX9"`), "line 2"),
			`line 2: invalid block id "XX9"`,
		},
		{
			"plain cause",
			Wrap(ErrCodeInvalidInput, errors.New("open north.csv: no such file"), "read config"),
			"read config: open north.csv: no such file",
		},
		{"empty message", Wrap(ErrCodeInternal, errors.New("disk full"), ""), "disk full"},
		{"behind fmt wrap", fmt.Errorf("load: %w", New(ErrCodeNotFound, "run abc")), "run abc"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExhaustionError(t *testing.T) {
	t.Run("default message", func(t *testing.T) {
		err := &ExhaustionError{Attempts: 500}
		expected := "CONSTRAINT_EXHAUSTED: no valid arrangement found after 500 attempts"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("custom message", func(t *testing.T) {
		err := &ExhaustionError{Attempts: 3, Message: "no 1x2 grid"}
		expected := "CONSTRAINT_EXHAUSTED: no 1x2 grid after 3 attempts"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("errors.As", func(t *testing.T) {
		var target *ExhaustionError
		err := fmt.Errorf("wrapped: %w", &ExhaustionError{Attempts: 7})
		if !errors.As(err, &target) || target.Attempts != 7 {
			t.Errorf("errors.As failed: %v", err)
		}
	})
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidConfig,
		ErrCodeConstraintExhausted,
		ErrCodeParse,
		ErrCodeUnknownLabel,
		ErrCodeNotFound,
		ErrCodeInvalidFormat,
		ErrCodeInvalidInput,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
