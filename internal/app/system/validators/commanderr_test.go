package validators

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestCommandErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"matching code", mongo.CommandError{Code: 48, Message: "x"}, true},
		{"wrapped code", fmt.Errorf("create: %w", mongo.CommandError{Code: 48}), true},
		{"matching phrase", errors.New("Collection Already Exists"), true},
		{"other", mongo.CommandError{Code: 13, Message: "unauthorized"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandErr(tt.err, []int32{48}, "already exists"); got != tt.want {
				t.Errorf("commandErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
