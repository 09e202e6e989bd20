package origin

import (
	"errors"
	"testing"
)

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	g := NewGuard([]string{
		"http://localhost:5173",
		"https://portfolio.example.com",
	})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://portfolio.example.com", true},
		{"https://evil.example", false},
		{"HTTPS://PORTFOLIO.EXAMPLE.COM", false},
		{"https://portfolio.example.com/", false},
		{"http://localhost:5174", false},
		{"null", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			t.Parallel()
			if got := g.IsAllowed(tt.origin); got != tt.want {
				t.Errorf("IsAllowed(%q): got %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestNewGuard_DropsEmptyAndDuplicates(t *testing.T) {
	t.Parallel()

	g := NewGuard([]string{"a", "", "b", "a", "", "c"})
	got := g.Origins()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Origins(): got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Origins()[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOrigins_ReturnsCopy(t *testing.T) {
	t.Parallel()

	g := NewGuard([]string{"https://a.example"})
	o := g.Origins()
	o[0] = "https://mutated.example"

	if !g.IsAllowed("https://a.example") || g.Origins()[0] != "https://a.example" {
		t.Error("mutating Origins() result must not change the guard")
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	g := NewGuard([]string{"https://a.example"})
	if err := g.Check("https://a.example"); err != nil {
		t.Errorf("Check(allowed): unexpected error: %v", err)
	}
	if err := g.Check(""); err != nil {
		t.Errorf("Check(empty): unexpected error: %v", err)
	}
	if err := g.Check("https://b.example"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Check(denied): got %v, want ErrNotAllowed", err)
	}
}

func TestEmptyGuard(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil)
	if !g.IsAllowed("") {
		t.Error("empty origin should be allowed with an empty list")
	}
	if g.IsAllowed("https://a.example") {
		t.Error("no origin should be allowed with an empty list")
	}
	if len(g.Origins()) != 0 {
		t.Errorf("Origins(): got %v, want empty", g.Origins())
	}
}
