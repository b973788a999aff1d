package auth

import "testing"

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantErr   bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Token abc", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearer(tt.header)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractBearer(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			continue
		}
		if got != tt.wantToken {
			t.Errorf("ExtractBearer(%q) = %q, want %q", tt.header, got, tt.wantToken)
		}
	}
}
