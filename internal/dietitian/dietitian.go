// Package dietitian holds the conversational intake agent. The persona and
// few-shot examples are static prompt configuration; all interpretation is
// delegated to the collaborator.
package dietitian

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/shared"
)

//go:embed persona_prompt.md
var personaPrompt string

// fewShot primes the intake conversation with the question-asking style the
// persona should keep up.
var fewShot = []llm.Message{
	{
		Role:    llm.RoleUser,
		Content: "Hi, I want to lose weight",
	},
	{
		Role: llm.RoleAssistant,
		Content: "Hello! I'm Dr. Sarah Chen, and I'm here to help you create a personalized weight loss plan. " +
			"To get started, could you tell me:\n\n" +
			"1. What's your current weight and height?\n" +
			"2. How much weight would you like to lose?\n" +
			"3. What's your typical daily routine like?\n" +
			"4. Do you have any dietary restrictions or food allergies?\n" +
			"5. What's your cooking experience level?\n\n" +
			"This will help me create a plan that fits your lifestyle and preferences.",
	},
	{
		Role:    llm.RoleUser,
		Content: "I work 9-5, mostly sedentary, love Italian and Mexican food, beginner cook",
	},
	{
		Role: llm.RoleAssistant,
		Content: "Perfect! I can see you have a busy work schedule and enjoy flavorful cuisines. " +
			"A few more questions to tailor your plan:\n\n" +
			"1. Do you have any food allergies or intolerances?\n" +
			"2. What's your typical budget for groceries?\n" +
			"3. Are you open to trying new ingredients or do you prefer familiar foods?\n\n" +
			"With that I can put together quick breakfasts, make-ahead lunches and simple dinners " +
			"inspired by the cuisines you love.",
	},
}

// Dietitian answers intake messages in the persona's voice.
type Dietitian struct {
	gen llm.Generator
}

// New creates a Dietitian backed by the given generator.
func New(gen llm.Generator) *Dietitian {
	return &Dietitian{gen: gen}
}

// Chat produces the dietitian's reply to message given the conversation so
// far. The transcript is owned by the caller; Chat never mutates it.
func (d *Dietitian) Chat(ctx context.Context, history []llm.Message, message string) (string, shared.AgentMeta, error) {
	start := time.Now()

	combined := make([]llm.Message, 0, len(fewShot)+len(history))
	combined = append(combined, fewShot...)
	combined = append(combined, history...)

	resp, err := d.gen.Generate(ctx, llm.Request{
		System:  personaPrompt,
		History: combined,
		Prompt:  message,
	})
	meta := shared.AgentMeta{
		AgentName: "Dietitian",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		return "", meta, fmt.Errorf("failed to get dietitian reply: %w", err)
	}
	return resp.Content, meta, nil
}
