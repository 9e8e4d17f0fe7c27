// pkg/tile/key_test.go - Unit tests for tile key ordering
package tile

import "testing"

func TestKeyLess(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want bool
	}{
		{"scale dominates", Key{X: 9, Y: 9, Z: 1}, Key{X: 0, Y: 0, Z: 2}, true},
		{"x breaks ties", Key{X: 1, Y: 9, Z: 3}, Key{X: 2, Y: 0, Z: 3}, true},
		{"y breaks final tie", Key{X: 1, Y: 1, Z: 3}, Key{X: 1, Y: 2, Z: 3}, true},
		{"equal keys", Key{X: 1, Y: 1, Z: 3}, Key{X: 1, Y: 1, Z: 3}, false},
		{"reversed", Key{X: 0, Y: 0, Z: 2}, Key{X: 9, Y: 9, Z: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	k := Key{X: 8362, Y: 5956, Z: 14}
	if got := k.String(); got != "14/8362/5956" {
		t.Errorf("String() = %q, want 14/8362/5956", got)
	}
}
