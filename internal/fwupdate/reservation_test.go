package fwupdate

import "testing"

func TestHoldSecondsMatchesSpecFormula(t *testing.T) {
	// ceil(3 * (1 + size/2730))
	cases := []struct {
		size uint32
		want int
	}{
		{0, 3},
		{2730, 6},
		{1, 4},
	}
	for _, c := range cases {
		if got := holdSeconds(c.size); got != c.want {
			t.Errorf("holdSeconds(%d)=%d want %d", c.size, got, c.want)
		}
	}
}
