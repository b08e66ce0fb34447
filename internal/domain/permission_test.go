package domain

import "testing"

func TestParsePermissionStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    PermissionStatus
		wantErr bool
	}{
		{"granted", PermissionGranted, false},
		{"AuthorizedWhenInUse", PermissionGranted, false},
		{"authorizedAlways", PermissionGranted, false},
		{" denied ", PermissionDenied, false},
		{"restricted", PermissionDenied, false},
		{"notDetermined", PermissionUndetermined, false},
		{"", PermissionUndetermined, false},
		{"maybe", PermissionUndetermined, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePermissionStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePermissionStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePermissionStatus(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPermissionStatus_Text(t *testing.T) {
	for _, s := range []PermissionStatus{PermissionUndetermined, PermissionGranted, PermissionDenied} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var back PermissionStatus
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if back != s {
			t.Errorf("text %s decoded to %v, want %v", text, back, s)
		}
	}

	var s PermissionStatus
	if err := s.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("UnmarshalText accepted an unknown status")
	}
}
