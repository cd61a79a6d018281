package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Address", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", false},
		{"Unicode", "café", false},
		{"Empty", "", true},
		{"Whitespace", "  \t", true},
		{"Too Large", strings.Repeat("a", MaxTextSize+1), true},
		{"At Limit", strings.Repeat("a", MaxTextSize), false},
		{"Invalid UTF-8", "bc1\xff", true},
		{"ANSI Escape", "bc1\x1b[31m", true},
		{"Newline", "bc1\nq", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckText("btc_address", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("CheckText() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}
