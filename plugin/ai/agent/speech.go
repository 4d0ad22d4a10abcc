package agent

import (
	"context"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/eduloop/eduloop/plugin/ai"
	"github.com/eduloop/eduloop/plugin/ai/timeout"
)

// SpeechAgent turns lesson content into narrated audio. It paraphrases the
// markdown into spoken prose first, then synthesizes it.
type SpeechAgent struct {
	client  Client
	speech  ai.SpeechService
	metrics *Metrics
}

// NewSpeechAgent creates a speech agent. metrics may be nil.
func NewSpeechAgent(client Client, speech ai.SpeechService, metrics *Metrics) *SpeechAgent {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &SpeechAgent{client: client, speech: speech, metrics: metrics}
}

// Narrate paraphrases lesson markdown into spoken prose and synthesizes it.
// voiceID and speed fall through to upstream defaults when zero.
func (sa *SpeechAgent) Narrate(ctx context.Context, lessonMarkdown, topic, voiceID string, speed float64) (*ai.SpeechResult, error) {
	spoken, err := sa.Paraphrase(ctx, lessonMarkdown, topic)
	if err != nil {
		return nil, err
	}
	return sa.Synthesize(ctx, spoken, voiceID, speed)
}

// Paraphrase rewrites content as natural spoken narration. Markdown
// structure is stripped before the call so the model sees prose, not markup.
func (sa *SpeechAgent) Paraphrase(ctx context.Context, content, topic string) (string, error) {
	plain := ExtractPlainText(content)

	start := time.Now()
	spoken, err := CallWithTimeout(ctx, "paraphrase", timeout.ChatTimeout, func(ctx context.Context) (string, error) {
		return sa.client.Paraphrase(ctx, plain, topic)
	})
	sa.metrics.Record("paraphrase", time.Since(start), err)
	if err != nil {
		return "", err
	}
	return spoken, nil
}

// Synthesize converts spoken text to audio.
func (sa *SpeechAgent) Synthesize(ctx context.Context, spokenText, voiceID string, speed float64) (*ai.SpeechResult, error) {
	req := &ai.SpeechRequest{Text: spokenText, VoiceID: voiceID, Speed: speed}

	start := time.Now()
	result, err := CallWithTimeout(ctx, "speech", timeout.SpeechTimeout, func(ctx context.Context) (*ai.SpeechResult, error) {
		return sa.speech.Synthesize(ctx, req)
	})
	sa.metrics.Record("speech", time.Since(start), err)
	return result, err
}

// ExtractPlainText strips markdown structure, keeping readable text. Used to
// feed clean prose to the paraphrase capability.
func ExtractPlainText(markdown string) string {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			// Code blocks don't read aloud; skip them entirely.
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
