package colorutil

import (
	"image/color"
	"testing"
)

func TestParseHex(t *testing.T) {
	cases := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "#E53E3E", want: color.RGBA{R: 0xe5, G: 0x3e, B: 0x3e, A: 255}},
		{in: "38a169", want: color.RGBA{R: 0x38, G: 0xa1, B: 0x69, A: 255}},
		{in: "#fff", want: White},
		{in: "", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseHex(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHex(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHex(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseHex(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseHexOrFallback(t *testing.T) {
	if got := ParseHexOr("nope", Black); got != Black {
		t.Fatalf("expected fallback, got %+v", got)
	}
}

func TestDarkenTwentyPercent(t *testing.T) {
	c, _ := ParseHex("#ff5252")
	if got := Hex(Darken(c, 20)); got != "#cc4242" {
		t.Fatalf("Darken: got %s, want #cc4242", got)
	}
}

func TestWithOpacity(t *testing.T) {
	c := color.RGBA{R: 200, G: 100, B: 0, A: 255}
	got := WithOpacity(c, 0.5)
	want := color.RGBA{R: 100, G: 50, B: 0, A: 128}
	if got != want {
		t.Fatalf("WithOpacity: got %+v, want %+v", got, want)
	}
	if WithOpacity(c, 1) != c {
		t.Fatal("full opacity should be unchanged")
	}
	if WithOpacity(c, 0) != (color.RGBA{}) {
		t.Fatal("zero opacity should be transparent")
	}
}
