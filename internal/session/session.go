// Package session orchestrates the intake conversation, profile extraction,
// plan generation and export for one user at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/dietitian"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/pdf"
	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
	"ai-diet-planner/internal/shared"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrNoProfile       = errors.New("session: no complete profile yet")
	ErrNoPlan          = errors.New("session: no plan generated yet")
)

// Recorder persists agent execution metadata.
type Recorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// PlanSaver persists generated plans.
type PlanSaver interface {
	Save(ctx context.Context, sessionID string, w *plan.WeekPlan) error
}

// Session holds one conversation's state. All access goes through the
// Manager, which serializes operations per session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	transcript []llm.Message
	profile    *profile.Profile
	plan       *plan.WeekPlan
}

// Manager owns all live sessions and the agents that act on them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	dietitian *dietitian.Dietitian
	extractor *profile.Extractor
	planner   *plan.Planner
	recorder  Recorder
	plans     PlanSaver
}

// NewManager wires the agents and persistence into a session manager.
// recorder and plans may be nil when persistence is not configured.
func NewManager(d *dietitian.Dietitian, e *profile.Extractor, p *plan.Planner, recorder Recorder, plans PlanSaver) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		dietitian: d,
		extractor: e,
		planner:   p,
		recorder:  recorder,
		plans:     plans,
	}
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Transcript returns a copy of the session's conversation so far.
func (m *Manager) Transcript(id string) ([]llm.Message, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.transcript))
	copy(out, s.transcript)
	return out, nil
}

// AddMessage appends a user message and returns the collaborator's reply.
// The transcript only grows; both sides of the exchange are recorded even
// when downstream steps later fail.
func (m *Manager) AddMessage(ctx context.Context, id, text string) (string, error) {
	s, err := m.Get(id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reply, meta, err := m.dietitian.Chat(ctx, s.transcript, text)
	if err != nil {
		return "", err
	}
	m.record(meta)

	s.transcript = append(s.transcript,
		llm.Message{Role: llm.RoleUser, Content: text},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	return reply, nil
}

// ExtractProfile runs extraction over the session transcript. A partial
// result is stored either way; when fields are missing the returned error is
// a *profile.IncompleteError naming them.
func (m *Manager) ExtractProfile(ctx context.Context, id string) (profile.Profile, error) {
	s, err := m.Get(id)
	if err != nil {
		return profile.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, metas, err := m.extractor.Extract(ctx, s.transcript)
	for _, meta := range metas {
		m.record(meta)
	}

	var incomplete *profile.IncompleteError
	if err != nil && !errors.As(err, &incomplete) {
		return profile.Profile{}, err
	}

	// Keep the partial profile too so the conversation can resume from it.
	stored := p
	s.profile = &stored
	return p, err
}

// GeneratePlan produces a fresh weekly plan from the session's complete
// profile and stores it as the session's current plan.
func (m *Manager) GeneratePlan(ctx context.Context, id string) (*plan.WeekPlan, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil || !s.profile.Complete() {
		return nil, ErrNoProfile
	}

	week, metas, err := m.planner.Generate(ctx, *s.profile)
	for _, meta := range metas {
		m.record(meta)
	}
	if err != nil {
		return nil, err
	}

	s.plan = week
	if m.plans != nil {
		if err := m.plans.Save(ctx, s.ID, week); err != nil {
			// Persistence is best effort; the in-memory plan is still served.
			log.Error().Err(err).Str("session_id", s.ID).Msg("failed to persist plan")
		}
	}
	return week, nil
}

// ExportPDF renders the session's current plan.
func (m *Manager) ExportPDF(id string) ([]byte, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		return nil, ErrNoPlan
	}
	if s.profile == nil {
		return nil, ErrNoProfile
	}
	return pdf.Render(*s.profile, s.plan)
}

func (m *Manager) record(meta shared.AgentMeta) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordMeta(meta); err != nil {
		log.Error().Err(err).Str("agent", meta.AgentName).Msg("failed to record metrics")
	}
}
