package wasm

import (
	"testing"

	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func TestLimits_Satisfies(t *testing.T) {
	tests := []struct {
		name     string
		offered  Limits
		required Limits
		want     bool
	}{
		{"exact match, no max", Limits{Min: 1}, Limits{Min: 1}, true},
		{"offered min too small", Limits{Min: 0}, Limits{Min: 1}, false},
		{"offered bigger min, no required max", Limits{Min: 5}, Limits{Min: 1}, true},
		{"required max, offered unbounded", Limits{Min: 1}, Limits{Min: 1, Max: u32p(4)}, false},
		{"required max, offered within", Limits{Min: 1, Max: u32p(2)}, Limits{Min: 1, Max: u32p(4)}, true},
		{"required max, offered exceeds", Limits{Min: 1, Max: u32p(8)}, Limits{Min: 1, Max: u32p(4)}, false},
		{"required max, offered equal", Limits{Min: 1, Max: u32p(4)}, Limits{Min: 1, Max: u32p(4)}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.offered.Satisfies(tc.required))
		})
	}
}
