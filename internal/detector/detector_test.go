package detector

import (
	"testing"

	lingua "github.com/pemistahl/lingua-go"
)

func TestDetector_Supports(t *testing.T) {
	d := New("ben", "hin", "kan")

	tests := []struct {
		code string
		want bool
	}{
		{"eng", true},
		{"ben", true},
		{"HIN", true},
		{"kan", false},
		{"tam", false},
	}
	for _, tt := range tests {
		if got := d.Supports(tt.code); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestDetector_Detect(t *testing.T) {
	d := New("ben", "hin")

	tests := []struct {
		name     string
		text     string
		wantLang lingua.Language
		wantOK   bool
	}{
		{name: "empty text", text: "", wantLang: lingua.Unknown, wantOK: false},
		{name: "english", text: "The weather is pleasant in the hills this morning.", wantLang: lingua.English, wantOK: true},
		{name: "bengali", text: "আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।", wantLang: lingua.Bengali, wantOK: true},
		{name: "hindi", text: "आज सुबह पहाड़ों में मौसम बहुत सुहावना है।", wantLang: lingua.Hindi, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := d.Detect(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Detect(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && lang != tt.wantLang {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, lang, tt.wantLang)
			}
		})
	}
}

func TestDetector_DetectISO(t *testing.T) {
	d := New("hin")
	code, ok := d.DetectISO("आज सुबह पहाड़ों में मौसम बहुत सुहावना है।")
	if !ok || code != "hin" {
		t.Errorf("DetectISO() = %q, %v; want hin, true", code, ok)
	}
}

func TestDetector_IsOffTarget(t *testing.T) {
	d := New("ben")

	tests := []struct {
		name   string
		text   string
		target string
		want   bool
	}{
		{name: "on target", text: "আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।", target: "ben", want: false},
		{name: "copied english source", text: "The weather is pleasant in the hills this morning.", target: "ben", want: true},
		{name: "too short", text: "Hello there", target: "ben", want: false},
		{name: "empty", text: "", target: "ben", want: false},
		{name: "unsupported target", text: "The weather is pleasant in the hills this morning.", target: "kan", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsOffTarget(tt.text, tt.target); got != tt.want {
				t.Errorf("IsOffTarget(%q, %q) = %v, want %v", tt.text, tt.target, got, tt.want)
			}
		})
	}
}

func TestDetector_CountOffTarget(t *testing.T) {
	d := New("ben")
	texts := []string{
		"আজ সকালে পাহাড়ে আবহাওয়া খুব মনোরম।",
		"The weather is pleasant in the hills this morning.",
		"",
	}
	if got := d.CountOffTarget(texts, "ben"); got != 1 {
		t.Errorf("CountOffTarget() = %d, want 1", got)
	}
}
