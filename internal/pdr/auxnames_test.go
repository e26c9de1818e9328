package pdr

import "testing"

func TestSanitizeNameReplacesNonWordRunsWithSingleUnderscore(t *testing.T) {
	got, ok := SanitizeName("foo bar!/baz")
	if !ok {
		t.Fatalf("expected name to be retained")
	}
	if got != "foo_bar_/baz" {
		t.Fatalf("got %q, want %q", got, "foo_bar_/baz")
	}
}

func TestSanitizeNameDropsAllUnderscoreResult(t *testing.T) {
	_, ok := SanitizeName("!!!")
	if ok {
		t.Fatalf("expected all-symbol input to be dropped")
	}
}

func TestExpandSharedNamesGeneratesSharedNameCountPlusOne(t *testing.T) {
	got := expandSharedNames("fan", 2)
	want := []string{"fan", "fan_1", "fan_2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDecodeUTF16BENameRoundTrips(t *testing.T) {
	// "OK" in UTF-16BE.
	raw := []byte{0x00, 'O', 0x00, 'K'}
	if got := decodeUTF16BEName(raw); got != "OK" {
		t.Fatalf("got %q, want %q", got, "OK")
	}
}
