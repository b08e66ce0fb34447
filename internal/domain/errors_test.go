package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestLookupError_Error(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  *LookupError
		want string
	}{
		{"invalid request", NewLookupError(LookupInvalidRequest, nil), "Invalid Request"},
		{"invalid request with cause", NewLookupError(LookupInvalidRequest, errors.New("missing api key")), "Invalid Request: missing api key"},
		{"transport", NewLookupError(LookupTransport, cause), "Transport Error: connection reset"},
		{"decoding", NewLookupError(LookupDecoding, errors.New("unexpected EOF")), "Decoding Error: unexpected EOF"},
		{"unknown", NewLookupError(LookupUnknown, nil), "Unknown Error"},
		{"unknown with cause", NewLookupError(LookupUnknown, errors.New("gps lost")), "Unknown Error: gps lost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("lookup: %w", NewLookupError(LookupTransport, cause))
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the cause")
	}
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != LookupTransport {
		t.Errorf("errors.As = %v", le)
	}
}

func TestAsLookupError(t *testing.T) {
	if AsLookupError(nil) != nil {
		t.Error("AsLookupError(nil) != nil")
	}

	typed := NewLookupError(LookupDecoding, errors.New("bad"))
	if got := AsLookupError(fmt.Errorf("wrapped: %w", typed)); got != typed {
		t.Errorf("AsLookupError did not unwrap to the typed error: %v", got)
	}

	plain := errors.New("plain")
	got := AsLookupError(plain)
	if got.Kind != LookupUnknown || !errors.Is(got, plain) {
		t.Errorf("AsLookupError(plain) = %+v", got)
	}
}
