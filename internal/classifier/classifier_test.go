package classifier

import (
	"testing"

	"github.com/orito-ai/orito-core/pkg/models"
)

func TestClassify_Greeting(t *testing.T) {
	got := Classify("hi")
	want := models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexitySimple}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassify_Decline(t *testing.T) {
	got := Classify("write me a poem about cats")
	if got.Complexity != models.ComplexityDecline {
		t.Fatalf("expected decline, got %+v", got)
	}
}

func TestClassify_DeclineOverriddenByLinuxKeyword(t *testing.T) {
	// A poem request that also mentions a Linux keyword should NOT decline.
	got := Classify("write me a poem about the linux kernel")
	if got.Complexity == models.ComplexityDecline {
		t.Fatalf("expected non-decline when a Linux keyword is present, got %+v", got)
	}
}

func TestClassify_ActionComplex(t *testing.T) {
	got := Classify("install nginx on Ubuntu 22.04")
	want := models.Classification{Intent: models.IntentAction, Complexity: models.ComplexityComplex}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassify_RepairComplex(t *testing.T) {
	got := Classify("fix my broken boot, install grub again")
	want := models.Classification{Intent: models.IntentRepair, Complexity: models.ComplexityComplex}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassify_SystemDiscovery(t *testing.T) {
	got := Classify("NAME=\"Ubuntu\"\nVERSION=\"22.04\"")
	want := models.Classification{Intent: models.IntentSystemDiscovery, Complexity: models.ComplexitySimple}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassify_DefaultModerate(t *testing.T) {
	got := Classify("what is systemd?")
	want := models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexityModerate}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassify_Pure(t *testing.T) {
	a := Classify("install docker")
	b := Classify("install docker")
	if a != b {
		t.Fatalf("classifier is not pure: %+v vs %+v", a, b)
	}
}

func TestDetermineResearchStrategy(t *testing.T) {
	cases := []struct {
		query  string
		intent models.Intent
		want   models.ResearchStrategy
	}{
		{"fix my broken boot", models.IntentRepair, models.StrategyDeep},
		{"set up a kubernetes cluster", models.IntentAction, models.StrategyDeep},
		{"what is systemd?", models.IntentInfo, models.StrategyQuick},
		{"how do package managers resolve dependency conflicts across distros", models.IntentInfo, models.StrategyAdaptive},
	}
	for _, c := range cases {
		got := DetermineResearchStrategy(c.query, c.intent)
		if got != c.want {
			t.Errorf("DetermineResearchStrategy(%q, %q) = %q, want %q", c.query, c.intent, got, c.want)
		}
	}
}

func TestNeedsSystemProfile(t *testing.T) {
	if !NeedsSystemProfile(models.IntentAction) {
		t.Error("expected action intent to need a profile")
	}
	if NeedsSystemProfile(models.IntentInfo) {
		t.Error("expected info intent not to need a profile")
	}
}
