package errors

import (
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative file", "stack.tif", false},
		{"nested relative", "out/run1/stack.tif", false},
		{"absolute", "/tmp/stack.tif", false},
		{"parent dir", "../stack.tif", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 1100), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"dot", ".", true},
		{"root", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "ROIset1", false},
		{"with dash", "roi-set_2", false},

		{"empty", "", true},
		{"with slash", "a/b", true},
		{"with backslash", "a\\b", true},
		{"hidden", ".rois", true},
		{"control char", "roi\tset", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
