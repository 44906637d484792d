package signals

import (
	"strings"
	"unicode"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/update"
)

// #region keywords

var authorityKeywords = []string{
	"in my experience", "we've worked with", "we have worked with", "we work with",
	"i've helped", "i have helped", "our clients", "companies like yours",
	"we typically see", "what we usually see", "i've seen", "i have seen",
	"years of experience", "we specialize", "case study", "track record",
	"most of our clients", "the pattern we see",
}

var deepQuestionKeywords = []string{
	"walk me through", "tell me more", "help me understand", "what's driving",
	"what is driving", "what have you tried", "how long has", "how long have",
	"what would it mean", "what happens if", "what's the impact", "what is the impact",
	"why is that", "why now", "what does that cost", "how is that affecting",
	"what would change", "what's behind", "what is behind", "how do you currently",
}

var reframeKeywords = []string{
	"another way to look", "look at it this way", "think of it as", "flip that",
	"instead of", "compared to the cost of", "the real question", "rather than",
	"put it another way", "what if you", "the cost of doing nothing", "the cost of waiting",
}

var valueKeywords = []string{
	"return on", "save you", "saves you", "revenue", "results", "outcome",
	"increase your", "reduce your", "grow your", "payback", "pays for itself",
	"worth it", "bottom line", "more clients", "more customers",
}

// valueWords are matched as whole words.
var valueWords = []string{"roi", "profit", "profits"}

var trustKeywords = []string{
	"i understand", "that makes sense", "fair enough", "i hear you",
	"to be transparent", "no pressure", "i appreciate", "totally get",
	"you're right", "you are right", "if it's not a fit", "if it is not a fit",
	"happy to share references", "no obligation",
}

var acknowledgeKeywords = []string{
	"i understand", "that's fair", "that is fair", "good question", "great question",
	"makes sense", "that's valid", "valid concern", "understand the concern",
	"let me address", "what specifically", "if we could", "a lot of our clients felt",
	"i hear you", "totally fair",
}

var pressureKeywords = []string{
	"sign today", "today only", "limited time", "right now", "act now",
	"before it's gone", "only a few spots", "deadline", "you need to", "you have to",
	"don't miss", "last chance", "decide now", "offer expires", "lock in",
	"need an answer", "by end of day", "by friday",
}

var apologyKeywords = []string{
	"sorry", "apologize", "apologise", "my bad", "excuse me", "forgive me",
}

// fillerWords are matched as whole words or phrases.
var fillerWords = []string{
	"um", "uh", "erm", "you know", "i mean", "kind of", "sort of", "i guess",
	"basically", "anyway",
}

// #endregion keywords

// #region producer

// Producer interprets an operator utterance into action signals.
type Producer struct {
	config ProducerConfig
}

// NewProducer creates a Producer.
func NewProducer(config ProducerConfig) *Producer {
	return &Producer{config: config}
}

// #endregion producer

// #region produce

// Produce detects every signal category independently; several may fire at
// once. Keyword heuristics only, no model call.
func (p *Producer) Produce(input ProduceInput) update.ActionSignals {
	lower := strings.ToLower(strings.TrimSpace(input.Utterance))
	padded := " " + normalize(lower) + " "
	words := strings.Fields(lower)

	return update.ActionSignals{
		DemonstratedAuthority: containsAny(lower, authorityKeywords),
		AskedDeepQuestions:    p.askedDeepQuestions(lower),
		ReframedEffectively:   containsAny(lower, reframeKeywords),
		BuiltValue:            containsAny(lower, valueKeywords) || countWords(padded, valueWords) > 0,
		BuiltTrust:            containsAny(lower, trustKeywords),
		HandledObjection:      p.handledObjection(lower, input.RecentCounterpart),
		AppliedPressure:       containsAny(lower, pressureKeywords),
		LostControl:           countHits(lower, apologyKeywords)+countWords(padded, fillerWords) >= p.config.ControlLossHits,
		OverExplained:         p.config.VerboseWords > 0 && len(words) > p.config.VerboseWords,
	}
}

// #endregion produce

// #region detectors

// askedDeepQuestions needs an open-ended question; a bare question mark is not enough.
func (p *Producer) askedDeepQuestions(lower string) bool {
	return containsAny(lower, deepQuestionKeywords)
}

// handledObjection fires when the counterpart recently objected and the
// operator acknowledges it instead of steamrolling.
func (p *Producer) handledObjection(lower string, recent []transcript.Turn) bool {
	n := p.config.ObjectionLookback
	if n <= 0 {
		n = 1
	}
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}

	live := false
	for _, t := range recent {
		if t.Role != transcript.RoleCounterpart {
			continue
		}
		if t.Resistance != "" && t.Resistance != objection.CategoryNone {
			live = true
			break
		}
		if objection.Present(t.Text) {
			live = true
			break
		}
	}
	return live && containsAny(lower, acknowledgeKeywords)
}

// #endregion detectors

// #region helpers

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		n += strings.Count(lower, kw)
	}
	return n
}

// countWords counts whole-word occurrences in a space-padded normalized string.
func countWords(padded string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(padded, " "+w+" ")
	}
	return n
}

// normalize replaces punctuation with spaces and collapses runs, keeping apostrophes.
func normalize(lower string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return r
		}
		return ' '
	}, lower)
	return strings.Join(strings.Fields(mapped), " ")
}

// #endregion helpers
