package db

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	cause := errors.New("WRONGTYPE")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with target", NewError(OpHSet, "posts:7", cause), "HSET posts:7: WRONGTYPE"},
		{"without target", NewError(OpDel, "", cause), "DEL: WRONGTYPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("cause not unwrapped")
			}
		})
	}
}
