package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-diet-planner/internal/dietitian"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
	"ai-diet-planner/internal/shared"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	requests  []llm.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	i := len(g.requests)
	g.requests = append(g.requests, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return llm.Response{}, g.errs[i]
	}
	if i >= len(g.responses) {
		return llm.Response{}, fmt.Errorf("no scripted response for call %d", i)
	}
	return llm.Response{Content: g.responses[i], Usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5}}, nil
}

type recordingRecorder struct {
	metas []shared.AgentMeta
}

func (r *recordingRecorder) RecordMeta(meta shared.AgentMeta) error {
	r.metas = append(r.metas, meta)
	return nil
}

type recordingSaver struct {
	sessionIDs []string
	plans      []*plan.WeekPlan
}

func (s *recordingSaver) Save(_ context.Context, sessionID string, w *plan.WeekPlan) error {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	s.plans = append(s.plans, w)
	return nil
}

const completeProfileJSON = `{
	"name": "Maria",
	"age": 30,
	"sex": "female",
	"height_cm": 168,
	"weight_kg": 82,
	"activity_level": "sedentary",
	"goal": "weight_loss",
	"cooking_skill": "beginner",
	"allergies": [],
	"dietary_restrictions": []
}`

func weekJSON(t *testing.T) string {
	t.Helper()
	days := make([]plan.DayPlan, len(plan.WeekDays))
	for i, name := range plan.WeekDays {
		meals := make([]plan.MealEntry, len(plan.MealSlots))
		for j, slot := range plan.MealSlots {
			meals[j] = plan.MealEntry{
				Slot:        slot,
				Name:        fmt.Sprintf("%s %s", name, slot),
				Ingredients: []string{"rice", "chicken breast"},
				Nutrition:   plan.Nutrition{Calories: 500, Protein: 30, Carbs: 50, Fat: 15},
			}
		}
		days[i] = plan.DayPlan{Day: name, Meals: meals}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"daily_plans":     days,
		"recommendations": []string{"Drink water"},
	})
	require.NoError(t, err)
	return string(payload)
}

type managerFixture struct {
	manager  *Manager
	chat     *scriptedGenerator
	extract  *scriptedGenerator
	generate *scriptedGenerator
	recorder *recordingRecorder
	saver    *recordingSaver
}

func newFixture(chat, extract, generate *scriptedGenerator) *managerFixture {
	recorder := &recordingRecorder{}
	saver := &recordingSaver{}
	return &managerFixture{
		manager: NewManager(
			dietitian.New(chat),
			profile.NewExtractor(extract),
			plan.NewPlanner(generate),
			recorder,
			saver,
		),
		chat:     chat,
		extract:  extract,
		generate: generate,
		recorder: recorder,
		saver:    saver,
	}
}

func TestFullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		&scriptedGenerator{responses: []string{"Hi Maria! Tell me about your goals."}},
		&scriptedGenerator{responses: []string{completeProfileJSON}},
		&scriptedGenerator{responses: []string{weekJSON(t)}},
	)

	s := f.manager.Create()
	require.NotEmpty(t, s.ID)

	reply, err := f.manager.AddMessage(ctx, s.ID, "Hi, I'm Maria, 30, trying to lose weight.")
	require.NoError(t, err)
	assert.Equal(t, "Hi Maria! Tell me about your goals.", reply)

	transcript, err := f.manager.Transcript(s.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, llm.RoleUser, transcript[0].Role)
	assert.Equal(t, llm.RoleAssistant, transcript[1].Role)

	p, err := f.manager.ExtractProfile(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", p.Name)

	week, err := f.manager.GeneratePlan(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, week.Days, 7)

	out, err := f.manager.ExportPDF(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(out[:5]))

	// One chat, one extraction, one planning call recorded.
	assert.Len(t, f.recorder.metas, 3)
	require.Len(t, f.saver.sessionIDs, 1)
	assert.Equal(t, s.ID, f.saver.sessionIDs[0])
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&scriptedGenerator{}, &scriptedGenerator{}, &scriptedGenerator{})

	_, err := f.manager.AddMessage(ctx, "missing", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.manager.ExtractProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.manager.GeneratePlan(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.manager.ExportPDF("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExtractIncompleteKeepsPartial(t *testing.T) {
	ctx := context.Background()
	partial := `{"name": "Maria", "sex": "female", "goal": "weight_loss"}`
	f := newFixture(
		&scriptedGenerator{responses: []string{"Got it."}},
		&scriptedGenerator{responses: []string{partial}},
		&scriptedGenerator{},
	)

	s := f.manager.Create()
	_, err := f.manager.AddMessage(ctx, s.ID, "I'm Maria and I want to lose weight.")
	require.NoError(t, err)

	p, err := f.manager.ExtractProfile(ctx, s.ID)
	var incomplete *profile.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "age")
	assert.Equal(t, "Maria", p.Name)

	// Plan generation refuses until the profile completes.
	_, err = f.manager.GeneratePlan(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestGeneratePlanWithoutProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&scriptedGenerator{}, &scriptedGenerator{}, &scriptedGenerator{})

	s := f.manager.Create()
	_, err := f.manager.GeneratePlan(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestExportWithoutPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		&scriptedGenerator{responses: []string{"Sure."}},
		&scriptedGenerator{responses: []string{completeProfileJSON}},
		&scriptedGenerator{},
	)

	s := f.manager.Create()
	_, err := f.manager.AddMessage(ctx, s.ID, "Here is everything about me.")
	require.NoError(t, err)
	_, err = f.manager.ExtractProfile(ctx, s.ID)
	require.NoError(t, err)

	_, err = f.manager.ExportPDF(s.ID)
	assert.ErrorIs(t, err, ErrNoPlan)
}
