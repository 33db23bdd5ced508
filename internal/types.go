package internal

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultPairs are the English↔Indic pairs of the Pralekha benchmark.
var DefaultPairs = []string{
	"eng_ben", "eng_guj", "eng_hin", "eng_kan", "eng_mal",
	"eng_mar", "eng_ori", "eng_pan", "eng_tam", "eng_tel", "eng_urd",
}

// DefaultSplits are downloaded and evaluated when no split is given.
var DefaultSplits = []string{"dev", "test"}

// LanguagePair is a benchmark pair such as eng_ben. The first code is the
// side stored as src_txt upstream.
type LanguagePair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// ParsePair parses an identifier of the form "eng_ben".
func ParsePair(id string) (LanguagePair, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(id)), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return LanguagePair{}, fmt.Errorf("invalid language pair %q: want <src>_<tgt>", id)
	}
	if parts[0] == parts[1] {
		return LanguagePair{}, fmt.Errorf("invalid language pair %q: both sides are %s", id, parts[0])
	}
	return LanguagePair{First: parts[0], Second: parts[1]}, nil
}

// ParsePairs parses every identifier, failing on the first invalid one.
func ParsePairs(ids []string) ([]LanguagePair, error) {
	pairs := make([]LanguagePair, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, err := ParsePair(id)
		if err != nil {
			return nil, err
		}
		if seen[p.ID()] {
			continue
		}
		seen[p.ID()] = true
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (p LanguagePair) ID() string {
	return p.First + "_" + p.Second
}

func (p LanguagePair) String() string {
	return p.ID()
}

// Forward is First → Second (en-xx for the default pairs).
func (p LanguagePair) Forward() Direction {
	return Direction{Pair: p, Source: p.First, Target: p.Second}
}

// Reverse is Second → First (xx-en for the default pairs).
func (p LanguagePair) Reverse() Direction {
	return Direction{Pair: p, Source: p.Second, Target: p.First}
}

// DirectionMode restricts which sides of a pair are translated.
type DirectionMode string

const (
	DirectionsBoth    DirectionMode = "both"
	DirectionsForward DirectionMode = "en-xx"
	DirectionsReverse DirectionMode = "xx-en"
)

// ParseDirectionMode accepts both, en-xx and xx-en (forward/reverse as aliases).
func ParseDirectionMode(s string) (DirectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return DirectionsBoth, nil
	case "en-xx", "forward":
		return DirectionsForward, nil
	case "xx-en", "reverse":
		return DirectionsReverse, nil
	}
	return "", fmt.Errorf("invalid direction mode %q: want both, en-xx or xx-en", s)
}

// Directions returns the directions of p selected by mode, forward first.
func (p LanguagePair) Directions(mode DirectionMode) []Direction {
	switch mode {
	case DirectionsForward:
		return []Direction{p.Forward()}
	case DirectionsReverse:
		return []Direction{p.Reverse()}
	default:
		return []Direction{p.Forward(), p.Reverse()}
	}
}

// Direction is one translation task inside a pair.
type Direction struct {
	Pair   LanguagePair `json:"pair"`
	Source string       `json:"source"`
	Target string       `json:"target"`
}

// ParseDirection parses "eng-ben" and attaches it to the pair that contains
// both codes in either order.
func ParseDirection(pair LanguagePair, s string) (Direction, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Direction{}, fmt.Errorf("invalid direction %q: want <src>-<tgt>", s)
	}
	d := Direction{Pair: pair, Source: strings.ToLower(parts[0]), Target: strings.ToLower(parts[1])}
	if d != pair.Forward() && d != pair.Reverse() {
		return Direction{}, fmt.Errorf("direction %s does not belong to pair %s", s, pair)
	}
	return d, nil
}

// DirectionOf parses a standalone "src-tgt" direction. The pair puts
// English first when either side is English.
func DirectionOf(s string) (Direction, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Direction{}, fmt.Errorf("invalid direction %q: want <src>-<tgt>", s)
	}
	first, second := parts[0], parts[1]
	if strings.EqualFold(second, "eng") {
		first, second = second, first
	}
	pair, err := ParsePair(first + "_" + second)
	if err != nil {
		return Direction{}, err
	}
	return ParseDirection(pair, s)
}

func (d Direction) String() string {
	return d.Source + "-" + d.Target
}

// FileStem is the per-direction file name used for prompts and outputs.
func (d Direction) FileStem() string {
	return d.Source + "_" + d.Target
}

// Layout resolves every artifact path of the pipeline from two roots.
type Layout struct {
	DataRoot string
	WorkRoot string
}

func (l Layout) PairDir(split string, p LanguagePair) string {
	return filepath.Join(l.DataRoot, split, p.ID())
}

// DocFile is the staged unit file of one side of a pair.
func (l Layout) DocFile(split string, p LanguagePair, lang string) string {
	return filepath.Join(l.PairDir(split, p), "doc."+lang+".jsonl")
}

// SourceFile is the input of the prompt generator for d.
func (l Layout) SourceFile(split string, d Direction) string {
	return l.DocFile(split, d.Pair, d.Source)
}

// ReferenceFile is the reference side the evaluator scores d against.
func (l Layout) ReferenceFile(split string, d Direction) string {
	return l.DocFile(split, d.Pair, d.Target)
}

func (l Layout) PromptsDir(split string) string {
	return filepath.Join(l.WorkRoot, "prompts", split)
}

func (l Layout) PromptFile(split string, d Direction) string {
	return filepath.Join(l.PromptsDir(split), d.FileStem()+".jsonl")
}

func (l Layout) OutputsDir(split string) string {
	return filepath.Join(l.WorkRoot, "outputs", split)
}

func (l Layout) OutputFile(split string, d Direction) string {
	return filepath.Join(l.OutputsDir(split), d.FileStem()+".jsonl")
}

func (l Layout) ResultsDir(split string) string {
	return filepath.Join(l.WorkRoot, "results", split)
}

func (l Layout) SummaryFile(split string) string {
	return filepath.Join(l.ResultsDir(split), "summary.tsv")
}
