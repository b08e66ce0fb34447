package domain

import (
	"fmt"
	"strings"
)

// PermissionStatus reports whether location tracking may proceed.
type PermissionStatus int

const (
	PermissionUndetermined PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

// String returns the canonical lower-case name.
func (s PermissionStatus) String() string {
	switch s {
	case PermissionUndetermined:
		return "undetermined"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ParsePermissionStatus accepts the canonical names as well as the
// platform authorization spellings (notDetermined, authorizedAlways,
// authorizedWhenInUse, restricted).
func ParsePermissionStatus(s string) (PermissionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "undetermined", "notdetermined", "not_determined", "":
		return PermissionUndetermined, nil
	case "granted", "authorized", "authorizedalways", "authorizedwheninuse":
		return PermissionGranted, nil
	case "denied", "restricted":
		return PermissionDenied, nil
	default:
		return PermissionUndetermined, fmt.Errorf("unknown permission status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PermissionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PermissionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParsePermissionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
