package vault

import (
	"context"
	"testing"
)

func TestBlockLenRounding(t *testing.T) {
	cases := []struct {
		passSize int
		want     int
	}{
		{1, 16},
		{15, 16},
		{16, 32}, // the mandatory NUL terminator forces the next block
		{17, 32},
		{31, 32},
		{32, 48},
	}

	for _, c := range cases {
		if got := blockLen(c.passSize); got != c.want {
			t.Errorf("blockLen(%d) = %d, want %d", c.passSize, got, c.want)
		}
	}
}

func TestGeneratePasswordAlphabetAndPadding(t *testing.T) {
	buf, n, err := generatePassword(40)
	if err != nil {
		t.Fatalf("generatePassword failed: %s", err)
	}
	if n != blockLen(40) {
		t.Fatalf("got block length %d, want %d", n, blockLen(40))
	}

	for i := 0; i < 40; i++ {
		if buf[i] < printableLo || buf[i] > printableLo+printableSpan-1 {
			t.Fatalf("byte %d = 0x%x out of alphabet [0x20, 0x7D]", i, buf[i])
		}
	}
	for i := 40; i < n; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = 0x%x, want NUL padding", i, buf[i])
		}
	}
}

func TestGeneratePasswordRejectsOutOfRangeSize(t *testing.T) {
	if _, _, err := generatePassword(0); err == nil {
		t.Fatal("expected error for pass_size 0")
	}
	if _, _, err := generatePassword(MaxPassSize + 1); err == nil {
		t.Fatal("expected error for pass_size beyond MaxPassSize")
	}
}

func TestGenerateCandidatesProducesDistinctBuffers(t *testing.T) {
	candidates, err := GenerateCandidates(context.Background(), 8, 20)
	if err != nil {
		t.Fatalf("GenerateCandidates failed: %s", err)
	}
	if len(candidates) != 8 {
		t.Fatalf("got %d candidates, want 8", len(candidates))
	}

	seen := map[string]bool{}
	for _, c := range candidates {
		seen[string(c)] = true
	}
	if len(seen) != len(candidates) {
		t.Fatal("expected all candidates to be distinct")
	}
}
