package agent

import (
	"regexp"
	"strings"
)

// Intent is the discrete routing label for a chat message.
type Intent string

const (
	// IntentTeaching routes to lesson generation.
	IntentTeaching Intent = "teaching"

	// IntentAssessment routes to answer evaluation.
	IntentAssessment Intent = "assessment"

	// IntentGeneral is handled by the orchestrator directly.
	IntentGeneral Intent = "general"
)

// IntentClassifier classifies student messages by keyword and pattern
// matching. It is the fast path of the hybrid router; uncertain inputs fall
// through to the LLM.
type IntentClassifier struct {
	teachingKeywords   []string
	assessmentKeywords []string
	generalKeywords    []string

	answerPatterns []*regexp.Regexp
}

// NewIntentClassifier creates a classifier with default patterns.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{
		teachingKeywords: []string{
			"explain", "teach", "what is", "what are", "how do", "how does",
			"help me understand", "lesson", "learn", "show me", "example of",
			"walk me through", "introduce", "revise", "revision",
		},
		assessmentKeywords: []string{
			"my answer", "check my", "grade", "mark my", "is this correct",
			"is this right", "am i right", "did i get", "i got", "score",
			"here is my working", "my solution", "submit",
		},
		generalKeywords: []string{
			"hello", "hi ", "hey", "thanks", "thank you", "bye", "goodbye",
			"who are you", "what can you do", "motivat", "study plan", "tired",
		},
		answerPatterns: []*regexp.Regexp{
			// "x = 3", "the answer is ...", "= 42"
			regexp.MustCompile(`(?i)\banswer\s+is\b`),
			regexp.MustCompile(`(?i)\b[a-z]\s*=\s*-?\d`),
			regexp.MustCompile(`(?i)^therefore\b`),
		},
	}
}

// Classify returns the intent and a confidence in [0,1]. Confidence below
// 0.6 means the rule path is uncertain and the caller should consult the
// LLM classifier.
func (ic *IntentClassifier) Classify(input string, hasOpenQuestion bool) (Intent, float64) {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return IntentGeneral, 1.0
	}

	assessScore := 0
	for _, kw := range ic.assessmentKeywords {
		if strings.Contains(lower, kw) {
			assessScore += 2
		}
	}
	for _, pat := range ic.answerPatterns {
		if pat.MatchString(input) {
			assessScore += 2
		}
	}
	// An answer-looking message only counts as a submission while a
	// question is actually open.
	if !hasOpenQuestion {
		assessScore = 0
	}

	teachScore := 0
	for _, kw := range ic.teachingKeywords {
		if strings.Contains(lower, kw) {
			teachScore += 2
		}
	}
	if strings.HasSuffix(lower, "?") {
		teachScore++
	}

	generalScore := 0
	for _, kw := range ic.generalKeywords {
		if strings.Contains(lower, kw) {
			generalScore += 2
		}
	}

	switch {
	case assessScore >= 2 && assessScore >= teachScore:
		return IntentAssessment, 0.85
	case teachScore >= 2 && teachScore > generalScore:
		return IntentTeaching, 0.85
	case generalScore >= 2 && generalScore >= teachScore:
		return IntentGeneral, 0.80
	case teachScore > 0:
		return IntentTeaching, 0.55
	default:
		return IntentGeneral, 0.40
	}
}
