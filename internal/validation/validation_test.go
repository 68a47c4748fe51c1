package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePlatform_Valid(t *testing.T) {
	tests := []struct {
		name         string
		platform     string
		manufacturer string
	}{
		{"typical", "Dreamcast", "Sega"},
		{"min length", "N64", "SNK"},
		{"max length", strings.Repeat("a", 50), strings.Repeat("b", 50)},
		{"fixture", "notaplatform", "notamanufacturer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidatePlatform(tc.platform, tc.manufacturer); err != nil {
				t.Fatalf("ValidatePlatform() err = %v", err)
			}
		})
	}
}

func TestValidatePlatform_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		platform     string
		manufacturer string
		wantMsg      string
	}{
		{"missing name", "", "Sega", "Name should match required \n"},
		{"short name", "DC", "Sega", "Name should match min 3\n"},
		{"long manufacturer", "Dreamcast", strings.Repeat("x", 51), "Manufacturer should match max 50\n"},
		{"both missing", "", "", "Name should match required \nManufacturer should match required \n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePlatform(tc.platform, tc.manufacturer)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidPlatform) {
				t.Errorf("error = %v, want ErrInvalidPlatform", err)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"valid", "66eb0fae96ad1476e9e20c55", "66eb0fae96ad1476e9e20c55", false},
		{"uppercase", "66EB0FAE96AD1476E9E20C55", "66eb0fae96ad1476e9e20c55", false},
		{"padded", " 66eb0fae96ad1476e9e20c55 ", "66eb0fae96ad1476e9e20c55", false},
		{"empty", "", "", true},
		{"short", "66eb0fae", "", true},
		{"non hex", "zzeb0fae96ad1476e9e20c55", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseID(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("ParseID(%q) err = %v, want ErrInvalidID", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) err = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if _, err := ParseID(id); err != nil {
			t.Fatalf("NewID() = %q is not a valid ID: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}
