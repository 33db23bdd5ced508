// Package detector flags translations that are not written in the
// requested target language.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minDetectLength is the rune count below which detection is unreliable
// and a text is never reported as off-target.
const minDetectLength = 20

// Detector is expensive to build; reuse one instance per evaluation.
type Detector struct {
	detector  lingua.LanguageDetector
	languages map[string]lingua.Language
}

// lookup resolves an ISO 639-3 code against the languages lingua knows.
func lookup(code string) (lingua.Language, bool) {
	for _, l := range lingua.AllLanguages() {
		if strings.EqualFold(l.IsoCode639_3().String(), code) {
			return l, true
		}
	}
	return lingua.Unknown, false
}

// New builds a detector restricted to the given ISO 639-3 codes plus
// English. Codes lingua does not model are ignored; Supports reports them.
func New(codes ...string) *Detector {
	languages := map[string]lingua.Language{"eng": lingua.English}
	for _, c := range codes {
		if l, ok := lookup(c); ok {
			languages[strings.ToLower(c)] = l
		}
	}

	unconfigured := lingua.NewLanguageDetectorBuilder()
	var builder lingua.LanguageDetectorBuilder
	if len(languages) < 2 {
		builder = unconfigured.FromAllLanguages()
	} else {
		list := make([]lingua.Language, 0, len(languages))
		for _, l := range languages {
			list = append(list, l)
		}
		builder = unconfigured.FromLanguages(list...)
	}
	return &Detector{detector: builder.Build(), languages: languages}
}

// Supports reports whether code can be checked by this detector.
func (d *Detector) Supports(code string) bool {
	_, ok := d.languages[strings.ToLower(code)]
	return ok
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-3 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	l, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(l.IsoCode639_3().String()), true
}

// IsOffTarget is true only when text is long enough and confidently
// detected as a language other than target. Empty, short and ambiguous
// texts pass.
func (d *Detector) IsOffTarget(text, target string) bool {
	want, ok := d.languages[strings.ToLower(target)]
	if !ok {
		return false
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDetectLength {
		return false
	}
	got, ok := d.Detect(text)
	return ok && got != want
}

// CountOffTarget returns how many texts are off-target.
func (d *Detector) CountOffTarget(texts []string, target string) int {
	n := 0
	for _, t := range texts {
		if d.IsOffTarget(t, target) {
			n++
		}
	}
	return n
}
