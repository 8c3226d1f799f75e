package profile

import (
	"context"
	"testing"

	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

type fakeStore struct {
	chat        store.ChatContext
	chatErr     error
	savedProfile models.SystemProfile
	saveErr     error
}

func (f *fakeStore) FindChatByID(ctx context.Context, chatID string) (store.ChatContext, error) {
	return f.chat, f.chatErr
}

func (f *fakeStore) UpdateChatSystemProfile(ctx context.Context, chatID string, profile models.SystemProfile) error {
	f.savedProfile = profile
	return f.saveErr
}

func (f *fakeStore) AppendAuditLog(ctx context.Context, entry store.AuditEntry) error { return nil }

func (f *fakeStore) FindUserPreferences(ctx context.Context, userID string) (store.UserPreferences, error) {
	return store.UserPreferences{}, store.ErrNotFound
}

func TestNormalize_AutoDetectPackageManagerFromDistro(t *testing.T) {
	d := Normalize(map[string]string{
		FieldDistro:         "Fedora",
		FieldVersion:        "39",
		FieldPackageManager: "Auto-detect",
		FieldShell:          "Auto-detect",
		FieldDesktopEnvironment: "GNOME",
	})
	if d.PackageManager != "dnf" {
		t.Fatalf("expected dnf, got %s", d.PackageManager)
	}
	if d.Shell != "bash" {
		t.Fatalf("expected bash, got %s", d.Shell)
	}
}

func TestNormalize_DontKnowBecomesUnknown(t *testing.T) {
	d := Normalize(map[string]string{
		FieldDistro:             "I don't know",
		FieldVersion:            "I don't know",
		FieldPackageManager:     "I don't know",
		FieldShell:              "I don't know",
		FieldDesktopEnvironment: "I don't know",
	})
	if d.IsComplete() {
		t.Fatal("expected an all-Unknown profile to be incomplete")
	}
	if d.Distro != "Unknown" {
		t.Fatalf("expected Unknown, got %s", d.Distro)
	}
}

func TestNormalize_UnrecognizedDistroDefaultsToApt(t *testing.T) {
	d := Normalize(map[string]string{
		FieldDistro:         "Gentoo",
		FieldPackageManager: "Auto-detect",
		FieldShell:          "zsh",
		FieldDesktopEnvironment: "KDE Plasma",
	})
	if d.PackageManager != "apt" {
		t.Fatalf("expected apt fallback, got %s", d.PackageManager)
	}
}

func TestCollectInteractive_AsksFixedOrder(t *testing.T) {
	var seen []string
	ask := func(ctx context.Context, q models.Question) (string, error) {
		seen = append(seen, q.Header)
		switch q.Header {
		case "Distribution":
			return "Ubuntu", nil
		case "Version":
			return "22.04", nil
		case "Package manager":
			return "Auto-detect", nil
		case "Shell":
			return "bash", nil
		default:
			return "GNOME", nil
		}
	}
	c := New(&fakeStore{})
	d, err := c.CollectInteractive(context.Background(), ask)
	if err != nil {
		t.Fatalf("CollectInteractive: %v", err)
	}
	want := []string{"Distribution", "Version", "Package manager", "Shell", "Desktop environment"}
	for i, h := range want {
		if seen[i] != h {
			t.Fatalf("expected question %d to be %q, got %q", i, h, seen[i])
		}
	}
	if d.PackageManager != "apt" || !d.IsComplete() {
		t.Fatalf("unexpected profile: %+v", d)
	}
}

func TestEnsureProfile_CompleteAndConfirmedSkipsCollection(t *testing.T) {
	fs := &fakeStore{chat: store.ChatContext{ContextProfile: &models.SystemProfile{
		Distro: "Ubuntu", PackageManager: "apt", Shell: "bash", DesktopEnvironment: "GNOME",
	}}}
	c := New(fs)
	calls := 0
	ask := func(ctx context.Context, q models.Question) (string, error) {
		calls++
		return "yes", nil
	}
	d, err := c.EnsureProfile(context.Background(), "chat-1", ask)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one confirmation question, got %d calls", calls)
	}
	if d.Distro != "Ubuntu" {
		t.Fatalf("unexpected profile: %+v", d)
	}
}

func TestEnsureProfile_DeclinedConfirmationFallsThroughToCollection(t *testing.T) {
	fs := &fakeStore{chat: store.ChatContext{ContextProfile: &models.SystemProfile{
		Distro: "Ubuntu", PackageManager: "apt", Shell: "bash", DesktopEnvironment: "GNOME",
	}}}
	c := New(fs)
	asked := 0
	ask := func(ctx context.Context, q models.Question) (string, error) {
		asked++
		if asked == 1 {
			return "no", nil
		}
		switch q.Header {
		case "Distribution":
			return "Arch", nil
		case "Package manager":
			return "pacman", nil
		case "Shell":
			return "zsh", nil
		case "Desktop environment":
			return "KDE Plasma", nil
		default:
			return "rolling", nil
		}
	}
	d, err := c.EnsureProfile(context.Background(), "chat-1", ask)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if d.Distro != "Arch" {
		t.Fatalf("expected fresh collection to override, got %+v", d)
	}
	if fs.savedProfile.Distro != "Arch" {
		t.Fatalf("expected persisted profile to reflect new collection, got %+v", fs.savedProfile)
	}
}

func TestEnsureProfile_NoExistingProfileCollectsDirectly(t *testing.T) {
	fs := &fakeStore{chatErr: store.ErrNotFound}
	c := New(fs)
	ask := func(ctx context.Context, q models.Question) (string, error) {
		switch q.Header {
		case "Distribution":
			return "Debian", nil
		case "Package manager":
			return "Auto-detect", nil
		case "Shell":
			return "bash", nil
		case "Desktop environment":
			return "XFCE", nil
		default:
			return "12", nil
		}
	}
	d, err := c.EnsureProfile(context.Background(), "chat-2", ask)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if d.Distro != "Debian" || d.PackageManager != "apt" {
		t.Fatalf("unexpected profile: %+v", d)
	}
}
