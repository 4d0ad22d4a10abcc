package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTeachingIntent(t *testing.T) {
	ic := NewIntentClassifier()
	inputs := []string{
		"Can you explain quadratic equations?",
		"Teach me about vectors",
		"Help me understand the chain rule",
		"Show me an example of integration by parts",
	}
	for _, input := range inputs {
		intent, confidence := ic.Classify(input, false)
		assert.Equal(t, IntentTeaching, intent, "input: %s", input)
		assert.GreaterOrEqual(t, confidence, 0.6, "input: %s", input)
	}
}

func TestClassifyAssessmentIntentRequiresOpenQuestion(t *testing.T) {
	ic := NewIntentClassifier()
	inputs := []string{
		"My answer is x=3",
		"Is this correct: the derivative is 2x",
		"Please check my working",
	}
	for _, input := range inputs {
		intent, confidence := ic.Classify(input, true)
		assert.Equal(t, IntentAssessment, intent, "input: %s", input)
		assert.GreaterOrEqual(t, confidence, 0.6, "input: %s", input)

		intent, _ = ic.Classify(input, false)
		assert.NotEqual(t, IntentAssessment, intent,
			"without an open question nothing is a submission: %s", input)
	}
}

func TestClassifyGeneralIntent(t *testing.T) {
	ic := NewIntentClassifier()
	for _, input := range []string{"hello!", "thank you so much", "who are you?"} {
		intent, _ := ic.Classify(input, false)
		assert.Equal(t, IntentGeneral, intent, "input: %s", input)
	}
}

func TestRouterFallbackPolicy(t *testing.T) {
	r := NewChatRouter(nil)

	// Ambiguous open-ended question falls back to teaching.
	result := r.Route(context.Background(), "what about the other case?", false)
	assert.Equal(t, IntentTeaching, result.Intent)

	// Ambiguous statement falls back to general.
	result = r.Route(context.Background(), "hmm ok then", false)
	assert.Equal(t, IntentGeneral, result.Intent)
	assert.Equal(t, "fallback", result.Method)
}

func TestRouterRulePathReported(t *testing.T) {
	r := NewChatRouter(nil)
	result := r.Route(context.Background(), "Teach me about probability", false)
	assert.Equal(t, IntentTeaching, result.Intent)
	assert.Equal(t, "rule", result.Method)
}

func TestEndsWithQuestion(t *testing.T) {
	assert.True(t, endsWithQuestion("why?"))
	assert.True(t, endsWithQuestion("why？  "))
	assert.False(t, endsWithQuestion("because"))
	assert.False(t, endsWithQuestion(""))
}
