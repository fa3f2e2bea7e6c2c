package narrate

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/selma/internal/models"
)

//go:embed prompts/narrate_event.txt
var narrateEventPrompt string

//go:embed prompts/summarize_story.txt
var summarizeStoryPrompt string

var (
	narrateTmpl   = template.Must(template.New("narrate_event").Parse(narrateEventPrompt))
	summarizeTmpl = template.Must(template.New("summarize_story").Parse(summarizeStoryPrompt))
)

const (
	// Passages beyond maxRecent are folded into the summary, keeping keepRecent.
	maxRecent  = 8
	keepRecent = 3
)

// Gemini narrates events with a Gemini model. It remembers the passages it
// wrote so each event is told in the light of the story so far.
type Gemini struct {
	client   *genai.Client
	generate func(ctx context.Context, prompt string) (string, error)

	summary string
	recent  []string
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel("gemini-2.5-flash")
	return &Gemini{
		client: client,
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return "", err
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
				return "", fmt.Errorf("no content returned from Gemini")
			}
			text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
			if !ok {
				return "", fmt.Errorf("unexpected response type from Gemini")
			}
			return string(text), nil
		},
	}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

type eventPrompt struct {
	Summary string
	Recent  []string
	Card    string
	Roles   []models.RoleBinding
	Text    string
	Changes []string
	Causes  []string
}

func (g *Gemini) prompt(ev models.Event, causes []Cause) (string, error) {
	data := eventPrompt{
		Summary: g.summary,
		Recent:  g.recent,
		Card:    ev.CardName,
		Roles:   ev.Roles,
		Text:    ev.Text,
		Changes: describeChanges(ev.ValuesModified),
	}
	for _, c := range causes {
		data.Causes = append(data.Causes, fmt.Sprintf("%s (event %d, weight %.2f)", c.Text, c.ID, c.Weight))
	}
	var buf bytes.Buffer
	if err := narrateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (g *Gemini) Narrate(ctx context.Context, ev models.Event, causes []Cause) (string, error) {
	if len(g.recent) > maxRecent {
		if err := g.summarize(ctx); err != nil {
			// Keep the full passage list and try again next event.
			slog.Warn("failed to summarize story", "error", err)
		}
	}
	prompt, err := g.prompt(ev, causes)
	if err != nil {
		return "", err
	}
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("narrate event %d: %w", ev.ID, err)
	}
	text = cleanText(text)
	g.recent = append(g.recent, text)
	return text, nil
}

func (g *Gemini) summarize(ctx context.Context) error {
	cut := len(g.recent) - keepRecent
	var passages strings.Builder
	for _, p := range g.recent[:cut] {
		fmt.Fprintf(&passages, "- %s\n", p)
	}
	var buf bytes.Buffer
	data := struct {
		CurrentSummary string
		NewPassages    string
	}{g.summary, passages.String()}
	if err := summarizeTmpl.Execute(&buf, data); err != nil {
		return err
	}
	text, err := g.generate(ctx, buf.String())
	if err != nil {
		return err
	}
	g.summary = cleanText(text)
	g.recent = append([]string(nil), g.recent[cut:]...)
	return nil
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
