package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/geophoto/internal/domain"
)

// trackEvent is one line of a track file or one Kafka message value.
// Exactly one of the position, permission or error members is expected.
//
//	{"lat":48.85,"lon":2.29}
//	{"permission":"denied"}
//	{"error":"gps lost","wait":"2s"}
type trackEvent struct {
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Permission string   `json:"permission,omitempty"`
	Error      string   `json:"error,omitempty"`
	Wait       string   `json:"wait,omitempty"`
}

type eventKind int

const (
	eventPosition eventKind = iota
	eventPermission
	eventError
)

// decodedEvent is a validated trackEvent.
type decodedEvent struct {
	kind       eventKind
	position   domain.Position
	permission domain.PermissionStatus
	err        error
	wait       time.Duration
}

var errEmptyEvent = errors.New("event has no position, permission or error")

func decodeEvent(data []byte) (decodedEvent, error) {
	var raw trackEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return decodedEvent{}, fmt.Errorf("decode event: %w", err)
	}

	var ev decodedEvent
	if raw.Wait != "" {
		d, err := time.ParseDuration(raw.Wait)
		if err != nil || d < 0 {
			return decodedEvent{}, fmt.Errorf("invalid wait %q", raw.Wait)
		}
		ev.wait = d
	}

	switch {
	case raw.Lat != nil || raw.Lon != nil:
		if raw.Lat == nil || raw.Lon == nil {
			return decodedEvent{}, errors.New("position needs both lat and lon")
		}
		pos := domain.NewPosition(*raw.Lat, *raw.Lon)
		if !pos.Valid() {
			return decodedEvent{}, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
		}
		ev.kind = eventPosition
		ev.position = pos
	case raw.Permission != "":
		status, err := domain.ParsePermissionStatus(raw.Permission)
		if err != nil {
			return decodedEvent{}, err
		}
		ev.kind = eventPermission
		ev.permission = status
	case raw.Error != "":
		ev.kind = eventError
		ev.err = errors.New(raw.Error)
	default:
		return decodedEvent{}, errEmptyEvent
	}
	return ev, nil
}
