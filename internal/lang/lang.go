// Package lang maps the ISO 639-3 codes used in pair identifiers to the
// language names that appear in prompts.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// names pins the spelling used in prompts; CLDR display names differ for
// some Indic languages (e.g. "Bangla", "Odia" vs "Oriya").
var names = map[string]string{
	"eng": "English",
	"ben": "Bengali",
	"guj": "Gujarati",
	"hin": "Hindi",
	"kan": "Kannada",
	"mal": "Malayalam",
	"mar": "Marathi",
	"ori": "Odia",
	"pan": "Punjabi",
	"tam": "Tamil",
	"tel": "Telugu",
	"urd": "Urdu",
}

// Validate reports whether code is a known ISO 639 language code.
func Validate(code string) error {
	if _, ok := names[strings.ToLower(code)]; ok {
		return nil
	}
	if _, err := language.ParseBase(code); err != nil {
		return fmt.Errorf("unknown language code %q: %w", code, err)
	}
	return nil
}

// Name returns the English name of code, falling back to the CLDR display
// name and finally to the code itself.
func Name(code string) string {
	code = strings.ToLower(code)
	if n, ok := names[code]; ok {
		return n
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return code
	}
	if n := display.English.Languages().Name(language.Make(base.String())); n != "" {
		return n
	}
	return code
}

// Tag converts code to a BCP 47 tag, as required by MT services.
func Tag(code string) (language.Tag, error) {
	base, err := language.ParseBase(code)
	if err != nil {
		return language.Und, fmt.Errorf("unknown language code %q: %w", code, err)
	}
	return language.Make(base.String()), nil
}
