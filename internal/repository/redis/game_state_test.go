package redis

import "testing"

func TestTimerGameID(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"game:abc:timer", "abc", true},
		{"game:1f0e-22:timer", "1f0e-22", true},
		{"game:abc:state", "", false},
		{"game::timer", "", false},
		{"session:abc:timer", "", false},
		{"timer", "", false},
	}
	for _, tt := range tests {
		got, ok := TimerGameID(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TimerGameID(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}
