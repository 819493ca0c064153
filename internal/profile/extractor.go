package profile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// ErrMalformedResponse indicates the collaborator returned something that
// could not be parsed as a profile after the bounded retry. It is a
// transient protocol failure, distinct from an incomplete profile.
var ErrMalformedResponse = errors.New("profile: malformed extraction response")

// ErrEmptyTranscript indicates extraction was attempted before the user
// said anything.
var ErrEmptyTranscript = errors.New("profile: transcript contains no user message")

// malformedRetries bounds re-attempts against a paid external API.
const malformedRetries = 1

// Extractor turns a conversation transcript into a Profile using
// schema-constrained generation.
type Extractor struct {
	gen llm.Generator
}

// NewExtractor creates an Extractor backed by the given generator.
func NewExtractor(gen llm.Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract parses a Profile out of the transcript. On success every field of
// the returned profile satisfies its constraint. When required fields are
// absent it returns the partial profile together with an *IncompleteError
// naming them. A response that cannot be parsed at all is retried once with
// the same transcript before ErrMalformedResponse is surfaced. One AgentMeta
// is returned per generation call so every paid attempt is accounted for.
func (e *Extractor) Extract(ctx context.Context, transcript []llm.Message) (Profile, []shared.AgentMeta, error) {
	if !hasUserMessage(transcript) {
		return Profile{}, nil, ErrEmptyTranscript
	}

	prompt, err := buildExtractorPrompt(transcript)
	if err != nil {
		return Profile{}, nil, err
	}

	var metas []shared.AgentMeta
	var lastErr error
	for attempt := 0; attempt <= malformedRetries; attempt++ {
		start := time.Now()
		resp, err := e.gen.Generate(ctx, llm.Request{
			Prompt: prompt,
			Schema: Schema(),
		})
		metas = append(metas, shared.AgentMeta{
			AgentName: "Extractor",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		})
		if err != nil {
			return Profile{}, metas, fmt.Errorf("failed to get extraction response: %w", err)
		}

		var p Profile
		if err := json.Unmarshal([]byte(stripFences(resp.Content)), &p); err != nil {
			lastErr = fmt.Errorf("%w. Response: %s", err, resp.Content)
			continue
		}

		p.Normalize()
		if missing := p.MissingFields(); len(missing) > 0 {
			return p, metas, &IncompleteError{Missing: missing}
		}
		return p, metas, nil
	}

	return Profile{}, metas, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
}

func hasUserMessage(transcript []llm.Message) bool {
	for _, m := range transcript {
		if m.Role == llm.RoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

type extractorPromptData struct {
	Transcript string
}

func buildExtractorPrompt(transcript []llm.Message) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var lines strings.Builder
	for _, m := range transcript {
		speaker := "User"
		if m.Role == llm.RoleAssistant {
			speaker = "Dietitian"
		}
		fmt.Fprintf(&lines, "%s: %s\n", speaker, m.Content)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, extractorPromptData{Transcript: lines.String()}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripFences removes a markdown code fence if the collaborator wrapped its
// JSON in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// Schema describes the Profile JSON shape for schema-constrained generation.
func Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"name":             llm.String(),
		"age":              llm.Integer(),
		"sex":              llm.String(string(SexMale), string(SexFemale), string(SexOther)),
		"height_cm":        llm.Number(),
		"weight_kg":        llm.Number(),
		"target_weight_kg": llm.Number(),
		"activity_level": llm.String(
			string(ActivitySedentary), string(ActivityLight), string(ActivityModerate),
			string(ActivityVery), string(ActivityExtreme),
		),
		"goal": llm.String(
			string(GoalWeightLoss), string(GoalWeightGain), string(GoalMaintenance),
			string(GoalMuscleGain), string(GoalGeneralHealth),
		),
		"dietary_restrictions": llm.Array(llm.String(
			"none", "vegetarian", "vegan", "gluten_free", "dairy_free",
			"nut_free", "low_carb", "keto", "paleo",
		)),
		"allergies":            llm.Array(llm.String()),
		"preferences":          llm.Array(llm.String()),
		"dislikes":             llm.Array(llm.String()),
		"cultural_preferences": llm.Array(llm.String()),
		"cooking_skill": llm.String(
			string(SkillBeginner), string(SkillIntermediate), string(SkillAdvanced),
		),
		"budget_constraint": llm.String(),
	})
}
