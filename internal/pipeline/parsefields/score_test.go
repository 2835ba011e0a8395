package parsefields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   float64
	}{
		{
			name:   "nothing found",
			fields: Fields{},
			want:   0.0,
		},
		{
			name:   "first name only",
			fields: Fields{FirstName: "John"},
			want:   0.4,
		},
		{
			name:   "dob only",
			fields: Fields{DateOfBirth: "01/15/1980"},
			want:   0.2,
		},
		{
			name:   "clean first and last earn the bonus",
			fields: Fields{FirstName: "John", LastName: "Smith"},
			want:   0.9,
		},
		{
			name:   "last name with digit loses the bonus",
			fields: Fields{FirstName: "John", LastName: "Smith3"},
			want:   0.8,
		},
		{
			name:   "last name containing id fragment loses the bonus",
			fields: Fields{FirstName: "Sarah", LastName: "Davidson"},
			want:   0.8,
		},
		{
			name:   "all fields capped at one",
			fields: Fields{FirstName: "John", LastName: "Smith", DateOfBirth: "01/15/1980"},
			want:   1.0,
		},
		{
			name:   "all fields with noisy last name",
			fields: Fields{FirstName: "John", LastName: "Number7", DateOfBirth: "01/15/1980"},
			want:   1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.fields), 1e-9)
		})
	}
}
