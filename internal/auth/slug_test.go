package auth

import (
	"regexp"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Suporte Técnico", "suporte-tecnico"},
		{"  Gerência de Contas  ", "gerencia-de-contas"},
		{"Ação!!Rápida", "acao-rapida"},
		{"L2 Support", "l2-support"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"acme", "eeytech-admin", "app-2"} {
		if !ValidSlug(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "Acme", "a b", "ação", "a_b"} {
		if ValidSlug(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestNewAPIKeyFormat(t *testing.T) {
	re := regexp.MustCompile(`^ey_[0-9a-f]{32}$`)
	a, err := NewAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString(a) || !re.MatchString(b) {
		t.Fatalf("unexpected key format: %q %q", a, b)
	}
	if a == b {
		t.Fatalf("keys must be random")
	}
}
