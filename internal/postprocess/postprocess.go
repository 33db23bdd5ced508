// Package postprocess strips generation artifacts from raw model output so
// that only the translation reaches the output file.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean runs every cleanup phase in order and returns the trimmed result.
// A reply that is nothing but artifacts cleans to "".
func Clean(text string) string {
	text = removeSpecialTokens(text)
	text = removeThinkingBlocks(text)
	text = removeRoleMarkers(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// specialTokens are end-of-turn and padding markers that leak into text
// when a server does not treat them as stop tokens.
var specialTokens = []string{
	"<|im_end|>",
	"<|eot_id|>",
	"<|end_of_text|>",
	"<|endoftext|>",
	"<end_of_turn>",
	"<|end|>",
	"</s>",
	"<pad>",
}

func removeSpecialTokens(text string) string {
	for _, tok := range specialTokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so each tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`,
)

// A reply cut off by the token limit may open a block and never close it.
var truncatedThinkingRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>).*$`)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var roleMarkerRe = regexp.MustCompile(
	`(?i)^(?:<\|im_start\|>\s*assistant|<\|start_header_id\|>\s*assistant\s*<\|end_header_id\|>|<start_of_turn>\s*model|\[/INST\]|assistant\s*:)\s*`,
)

func removeRoleMarkers(text string) string {
	for {
		loc := roleMarkerRe.FindStringIndex(text)
		if loc == nil || loc[1] == 0 {
			return text
		}
		text = text[loc[1]:]
	}
}

// echoPatterns are anchored lead-ins ending in a colon, optionally naming
// the target language ("Here is the Bengali translation:").
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s*`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your| a)?(?: [\p{L}]+)? (?:translation|translated text|text)(?: (?:in|into) [\p{L}]+)?\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:[\p{L}]+ )?(?:translation|translated text)(?: (?:in|into) [\p{L}]+)?\s*:`),
}

func removeInstructionEchoes(text string) string {
	// The courtesy prefix only counts when a lead-in follows it.
	rest := text
	if loc := echoPatterns[0].FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
	}
	for _, re := range echoPatterns[1:] {
		if loc := re.FindStringIndex(rest); loc != nil {
			return strings.TrimSpace(rest[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping drops one matching pair of outer quotes.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	pairs := map[rune]rune{
		'"':      '"',
		'\'':     '\'',
		'«':      '»',
		'\u201C': '\u201D',
		'\u2018': '\u2019',
	}
	if closing, ok := pairs[runes[0]]; ok && runes[n-1] == closing {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
