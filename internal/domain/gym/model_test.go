package gym

import (
	"testing"

	"gymdesk/internal/domain/entity"
)

// TestInfo_Validate tests validation of Info.
func TestInfo_Validate(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want error
	}{
		{"valid", Info{Name: "Iron Temple", Email: "desk@iron.example"}, nil},
		{"no email", Info{Name: "Iron Temple"}, nil},
		{"blank name", Info{Name: "  "}, ErrEmptyName},
		{"bad email", Info{Name: "Iron Temple", Email: "desk"}, entity.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}
