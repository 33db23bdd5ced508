package lang

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"eng", "English"},
		{"BEN", "Bengali"},
		{"ori", "Odia"},
		{"urd", "Urdu"},
		{"fra", "French"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := Name(tt.code); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("hin"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate("deu"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate("qqqq"); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestTag(t *testing.T) {
	tag, err := Tag("ben")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.String() != "bn" {
		t.Errorf("expected bn, got %q", tag.String())
	}
}
