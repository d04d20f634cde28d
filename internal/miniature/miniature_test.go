package miniature

import (
	"math"
	"testing"
)

func solid(t *testing.T, w, h int, r, g, b uint8) *Miniature {
	t.Helper()
	m, err := New(w, h)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetPixel(x, y, r, g, b)
		}
	}
	return m
}

func TestGetSetPixelOutOfBoundsIgnored(t *testing.T) {
	m, err := New(4, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.SetPixel(-1, 0, 1, 2, 3)
	m.SetPixel(0, -1, 1, 2, 3)
	m.SetPixel(4, 0, 1, 2, 3)
	m.SetPixel(0, 4, 1, 2, 3)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b := m.GetPixel(x, y)
			if r != 0 || g != 0 || b != 0 {
				t.Fatalf("expected untouched pixel at (%d,%d), got %d,%d,%d", x, y, r, g, b)
			}
		}
	}

	r, g, b := m.GetPixel(-1, -1)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("out-of-bounds GetPixel should return zero values, got %d,%d,%d", r, g, b)
	}
}

func TestCompareIdentity(t *testing.T) {
	m := solid(t, 16, 16, 10, 20, 30)
	d, err := m.Compare(m, math.MaxUint32)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected identity compare to be 0, got %d", d)
	}
}

func TestCompareSymmetry(t *testing.T) {
	p := solid(t, 16, 16, 10, 20, 30)
	q := solid(t, 16, 16, 200, 5, 90)

	dpq, err := p.Compare(q, math.MaxUint32)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	dqp, err := q.Compare(p, math.MaxUint32)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if dpq != dqp {
		t.Fatalf("compare not symmetric: %d vs %d", dpq, dqp)
	}
}

func TestCompareSizeMismatch(t *testing.T) {
	p := solid(t, 16, 16, 0, 0, 0)
	q := solid(t, 8, 8, 0, 0, 0)
	if _, err := p.Compare(q, math.MaxUint32); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestCompareEarlyExitMatchesFullDistance(t *testing.T) {
	p := solid(t, 16, 16, 0, 0, 0)
	q := solid(t, 16, 16, 255, 255, 255)

	full, err := p.Compare(q, math.MaxUint32)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if full == 0 {
		t.Fatal("expected nonzero distance between black and white miniatures")
	}

	ceilings := []uint32{0, full / 2, full, full + 1, math.MaxUint32}
	for _, c := range ceilings {
		got, err := p.Compare(q, c)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		wantExceed := c < full
		gotExceed := got > c
		if gotExceed != wantExceed {
			t.Fatalf("ceiling %d: expected exceed=%v, got exceed=%v (distance=%d)", c, wantExceed, gotExceed, got)
		}
		if !wantExceed && got != full {
			t.Fatalf("ceiling %d: expected full distance %d when not exceeding, got %d", c, full, got)
		}
	}
}
