package specialized

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/agent"
	"github.com/orito-ai/orito-core/internal/profile"
	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

// chanSink forwards every emitted event onto a channel so a test can react
// to agent:question events as they happen, one at a time.
type chanSink struct {
	ch chan models.Event
}

func (s *chanSink) Emit(ctx context.Context, event models.Event) {
	s.ch <- event
}

type fakeStore struct {
	chat    store.ChatContext
	chatErr error
	saved   models.SystemProfile
}

func (f *fakeStore) FindChatByID(ctx context.Context, chatID string) (store.ChatContext, error) {
	return f.chat, f.chatErr
}
func (f *fakeStore) UpdateChatSystemProfile(ctx context.Context, chatID string, p models.SystemProfile) error {
	f.saved = p
	return nil
}
func (f *fakeStore) AppendAuditLog(ctx context.Context, entry store.AuditEntry) error { return nil }
func (f *fakeStore) FindUserPreferences(ctx context.Context, userID string) (store.UserPreferences, error) {
	return store.UserPreferences{}, store.ErrNotFound
}

func TestCuriousAgent_CommandMode_DerivesMissingFields(t *testing.T) {
	r := newBareRuntime(t, &scriptedCompleter{}, 1, 0)
	c := NewCuriousAgent(r, profile.New(&fakeStore{chatErr: store.ErrNotFound}))

	existing := &models.SystemProfileData{Distro: "Ubuntu", PackageManager: "Unknown", Shell: "bash", DesktopEnvironment: ""}
	result, err := c.RunCommandMode(context.Background(), "my wifi keeps dropping", existing)
	if err != nil {
		t.Fatalf("RunCommandMode: %v", err)
	}
	wantFields := map[string]bool{profile.FieldVersion: true, profile.FieldPackageManager: true, profile.FieldDesktopEnvironment: true}
	if len(result.Fields) != 3 {
		t.Fatalf("expected 3 missing fields, got %+v", result.Fields)
	}
	for _, f := range result.Fields {
		if !wantFields[f] {
			t.Fatalf("unexpected missing field %q", f)
		}
	}
	if len(result.Commands) == 0 {
		t.Fatal("expected discovery commands to be proposed")
	}
}

func TestCuriousAgent_CommandMode_SpawnsResearchOnRepairKeyword(t *testing.T) {
	r := newBareRuntime(t, &scriptedCompleter{}, 1, 0)
	c := NewCuriousAgent(r, profile.New(&fakeStore{chatErr: store.ErrNotFound}))

	spawned := make(chan struct{}, 1)
	go func() {
		req := <-r.SpawnRequests()
		spawned <- struct{}{}
		r.ResolveSubAgent(req.RequestID, ResearchResult{Summary: "background reading"}, nil)
	}()

	_, err := c.RunCommandMode(context.Background(), "getting a kernel panic error on boot", nil)
	if err != nil {
		t.Fatalf("RunCommandMode: %v", err)
	}
	select {
	case <-spawned:
	default:
		t.Fatal("expected a research sub-agent to be spawned for a repair-keyword task")
	}
}

func TestCuriousAgent_QuestionMode_CollectsAndPersists(t *testing.T) {
	fs := &fakeStore{chatErr: store.ErrNotFound}
	sink := &chanSink{ch: make(chan models.Event, 8)}
	def := &models.AgentDefinition{
		Name: "curious", Description: "d", Mode: models.ModeAutonomous, Color: "green",
		Tools: models.ToolPolicy{Allowed: []string{"*"}},
	}
	r := agent.New(agent.Config{
		AgentType: "curious", Definition: def, Completer: &scriptedCompleter{}, Sink: sink,
	})
	c := NewCuriousAgent(r, profile.New(fs))

	go func() {
		for i := 0; i < len(profile.Questions()); i++ {
			ev := <-sink.ch
			if ev.Type != models.EventAgentQuestion {
				i--
				continue
			}
			switch ev.Header {
			case "Distribution":
				r.ResolveUserAnswer(ev.QuestionID, "Fedora")
			case "Package manager":
				r.ResolveUserAnswer(ev.QuestionID, "Auto-detect")
			case "Shell":
				r.ResolveUserAnswer(ev.QuestionID, "bash")
			case "Desktop environment":
				r.ResolveUserAnswer(ev.QuestionID, "GNOME")
			default:
				r.ResolveUserAnswer(ev.QuestionID, "39")
			}
		}
	}()

	data, err := c.RunQuestionMode(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("RunQuestionMode: %v", err)
	}
	if data.Distro != "Fedora" || data.PackageManager != "dnf" {
		t.Fatalf("unexpected profile: %+v", data)
	}
	if fs.saved.Distro != "Fedora" {
		t.Fatalf("expected profile to be persisted, got %+v", fs.saved)
	}
}
