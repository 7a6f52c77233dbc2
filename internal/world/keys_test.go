package world

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	if k := Key3(-3, 7, 12); k != "-3,7,12" {
		t.Fatalf("Key3 = %q", k)
	}
	gx, gy, h, ok := ParseKey3("-3,7,12")
	if !ok || gx != -3 || gy != 7 || h != 12 {
		t.Fatalf("ParseKey3 = %d,%d,%d ok=%v", gx, gy, h, ok)
	}
	gx, gy, ok = ParseKey2("23,0")
	if !ok || gx != 23 || gy != 0 {
		t.Fatalf("ParseKey2 = %d,%d ok=%v", gx, gy, ok)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	bad3 := []string{"", "1,2", "1,2,3,4", "a,2,3", "1,,3", "1,2,3.5", "1, 2,3"}
	for _, k := range bad3 {
		if _, _, _, ok := ParseKey3(k); ok {
			t.Fatalf("ParseKey3(%q) accepted", k)
		}
	}
	bad2 := []string{"", "1", "1,2,3", "x,y", "1.0,2"}
	for _, k := range bad2 {
		if _, _, ok := ParseKey2(k); ok {
			t.Fatalf("ParseKey2(%q) accepted", k)
		}
	}
}

func TestIsBorder(t *testing.T) {
	cases := []struct {
		gx, gy int
		want   bool
	}{
		{0, 5, true},
		{23, 5, true},
		{5, 0, true},
		{5, 23, true},
		{0, 0, true},
		{23, 23, true},
		{1, 1, false},
		{12, 12, false},
		{-1, 5, false},
		{24, 5, false},
		{5, 24, false},
	}
	for _, c := range cases {
		if got := IsBorder(c.gx, c.gy); got != c.want {
			t.Fatalf("IsBorder(%d,%d) = %v, want %v", c.gx, c.gy, got, c.want)
		}
	}
}

func TestOpposite(t *testing.T) {
	cases := []struct {
		gx, gy, ox, oy int
	}{
		{0, 5, 23, 5},
		{23, 5, 0, 5},
		{7, 0, 7, 23},
		{7, 23, 7, 0},
		{0, 0, 23, 23},
		{23, 0, 0, 23},
	}
	for _, c := range cases {
		ox, oy, ok := Opposite(c.gx, c.gy)
		if !ok || ox != c.ox || oy != c.oy {
			t.Fatalf("Opposite(%d,%d) = %d,%d ok=%v, want %d,%d", c.gx, c.gy, ox, oy, ok, c.ox, c.oy)
		}
	}
	if _, _, ok := Opposite(5, 5); ok {
		t.Fatalf("Opposite accepted interior cell")
	}
	if _, _, ok := Opposite(-1, 0); ok {
		t.Fatalf("Opposite accepted out-of-range cell")
	}
}

func TestNormalizeBlockType(t *testing.T) {
	if NormalizeBlockType(3) != BlockHazardFence {
		t.Fatalf("tag 3 mapped wrong")
	}
	for _, tag := range []int{-1, 8, 1000} {
		if NormalizeBlockType(tag) != BlockNormal {
			t.Fatalf("tag %d did not normalize to default", tag)
		}
	}
}
