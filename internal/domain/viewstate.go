package domain

import (
	"encoding/json"
	"slices"
)

// ViewKind discriminates the variants of ViewState.
type ViewKind int

const (
	ViewReady ViewKind = iota
	ViewLoading
	ViewLoaded
	ViewDeniedLocation
	ViewStopSharing
	ViewError
)

// String returns the variant name.
func (k ViewKind) String() string {
	switch k {
	case ViewReady:
		return "ready"
	case ViewLoading:
		return "loading"
	case ViewLoaded:
		return "loaded"
	case ViewDeniedLocation:
		return "deniedLocation"
	case ViewStopSharing:
		return "stopSharing"
	case ViewError:
		return "error"
	default:
		return "unknown"
	}
}

// ViewState is what the user should currently see.
// Photos is only meaningful for ViewLoaded and Message only for ViewError.
type ViewState struct {
	Kind    ViewKind
	Photos  []PhotoReference
	Message string
}

// Ready is the idle state: no session, no error, no results shown.
func Ready() ViewState { return ViewState{Kind: ViewReady} }

// Loading is a started session with no resolved lookup yet.
func Loading() ViewState { return ViewState{Kind: ViewLoading} }

// Loaded shows photos, newest first. The slice is copied.
func Loaded(photos []PhotoReference) ViewState {
	return ViewState{Kind: ViewLoaded, Photos: slices.Clone(photos)}
}

// DeniedLocation means location permission has been refused.
func DeniedLocation() ViewState { return ViewState{Kind: ViewDeniedLocation} }

// StopSharing means tracking was stopped by the user.
func StopSharing() ViewState { return ViewState{Kind: ViewStopSharing} }

// Failed carries the description of the most recent failure.
func Failed(message string) ViewState { return ViewState{Kind: ViewError, Message: message} }

// Equal compares variant and payload.
func (v ViewState) Equal(other ViewState) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ViewLoaded:
		return slices.Equal(v.Photos, other.Photos)
	case ViewError:
		return v.Message == other.Message
	default:
		return true
	}
}

// Clone returns a copy that shares no memory with v.
func (v ViewState) Clone() ViewState {
	v.Photos = slices.Clone(v.Photos)
	return v
}

// String returns the variant name, e.g. "loaded".
func (v ViewState) String() string {
	return v.Kind.String()
}

type viewStateJSON struct {
	State   string           `json:"state"`
	Photos  []PhotoReference `json:"photos,omitempty"`
	Message string           `json:"message,omitempty"`
}

// MarshalJSON encodes the state as {"state": "...", "photos": [...], "message": "..."}.
func (v ViewState) MarshalJSON() ([]byte, error) {
	out := viewStateJSON{State: v.Kind.String()}
	switch v.Kind {
	case ViewLoaded:
		out.Photos = v.Photos
	case ViewError:
		out.Message = v.Message
	}
	return json.Marshal(out)
}
