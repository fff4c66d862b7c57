package interview

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultFillerWords is the filler vocabulary used when none is configured.
var DefaultFillerWords = []string{"um", "uh", "like", "you know", "so", "actually", "basically"}

const (
	fillerPenalty  = 3
	brevityPenalty = 10
	brevityWords   = 8
	maxScore       = 100
)

// Analysis is the breakdown behind a confidence score.
type Analysis struct {
	Score   int `json:"score"`
	Words   int `json:"words"`
	Fillers int `json:"fillers"`
}

// Token is one whitespace-separated word of a transcript.
type Token struct {
	Text   string `json:"text"`
	Filler bool   `json:"filler"`
}

// Scorer rates a spoken answer by filler-word density and brevity.
// A Scorer is immutable and safe for concurrent use.
type Scorer struct {
	patterns []*regexp.Regexp
	single   map[string]struct{}
}

// NewScorer compiles a scorer for the given filler vocabulary.
// An empty vocabulary falls back to DefaultFillerWords.
func NewScorer(fillers []string) *Scorer {
	if len(fillers) == 0 {
		fillers = DefaultFillerWords
	}

	s := &Scorer{single: make(map[string]struct{})}
	for _, f := range fillers {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(f)+`\b`))
		if !strings.ContainsFunc(f, unicode.IsSpace) {
			s.single[f] = struct{}{}
		}
	}
	return s
}

var defaultScorer = NewScorer(DefaultFillerWords)

// Score rates transcript with the default vocabulary.
func Score(transcript string) int {
	return defaultScorer.Score(transcript)
}

// Score returns a confidence score in [0,100].
func (s *Scorer) Score(transcript string) int {
	return s.Analyze(transcript).Score
}

// Analyze counts words and whole-word filler occurrences and derives the score.
func (s *Scorer) Analyze(transcript string) Analysis {
	words := len(strings.Fields(transcript))

	fillers := 0
	for _, re := range s.patterns {
		fillers += len(re.FindAllStringIndex(transcript, -1))
	}

	penalty := fillerPenalty * fillers
	if words < brevityWords {
		penalty += brevityPenalty
	}

	return Analysis{
		Score:   max(0, maxScore-penalty),
		Words:   words,
		Fillers: fillers,
	}
}

// Highlight splits transcript into tokens and flags single-word fillers.
func (s *Scorer) Highlight(transcript string) []Token {
	fields := strings.Fields(transcript)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		_, filler := s.single[lettersOnly(f)]
		tokens = append(tokens, Token{Text: f, Filler: filler})
	}
	return tokens
}

func lettersOnly(word string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
}
