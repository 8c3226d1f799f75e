// Package profile implements the System-Profile Collector (spec §4.7):
// the fixed interactive question set, post-processing rules that turn raw
// answers into a normalized SystemProfileData, and persistence through the
// Store capability.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

// field names, in the fixed collection order of spec §4.7.
const (
	FieldDistro             = "distro"
	FieldVersion             = "version"
	FieldPackageManager     = "packageManager"
	FieldShell              = "shell"
	FieldDesktopEnvironment = "desktopEnvironment"
)

// distroPackageManager maps a detected distro family to its default package
// manager (spec §4.7 post-processing table).
var distroPackageManager = map[string]string{
	"ubuntu": "apt",
	"debian": "apt",
	"mint":   "apt",
	"pop":    "apt",
	"fedora": "dnf",
	"centos": "dnf",
	"rhel":   "dnf",
	"arch":   "pacman",
	"manjaro": "pacman",
	"opensuse": "zypper",
}

// AskOne requests the answer to a single question, blocking until the user
// responds or the implementation's own timeout elapses.
type AskOne func(ctx context.Context, q models.Question) (string, error)

// Questions returns the fixed single-select question set of spec §4.7, in
// collection order.
func Questions() []models.Question {
	return []models.Question{
		{
			Question: "What Linux distribution are you running?",
			Header:   "Distribution",
			Purpose:  "lets me tailor package names and paths to your system",
			Options: []models.QuestionOption{
				{Label: "Ubuntu"}, {Label: "Debian"}, {Label: "Fedora"},
				{Label: "Arch"}, {Label: "Manjaro"}, {Label: "openSUSE"},
				{Label: "Linux Mint"}, {Label: "Pop!_OS"},
				{Label: "Auto-detect"}, {Label: "I don't know"},
			},
		},
		{
			Question: "Which version?",
			Header:   "Version",
			Options: []models.QuestionOption{
				{Label: "Auto-detect"}, {Label: "I don't know"},
			},
			AllowCustom: true,
		},
		{
			Question: "Which package manager do you use?",
			Header:   "Package manager",
			Options: []models.QuestionOption{
				{Label: "apt"}, {Label: "dnf"}, {Label: "pacman"}, {Label: "zypper"},
				{Label: "Auto-detect"}, {Label: "I don't know"},
			},
		},
		{
			Question: "What shell do you use?",
			Header:   "Shell",
			Options: []models.QuestionOption{
				{Label: "bash"}, {Label: "zsh"}, {Label: "fish"},
				{Label: "Auto-detect"}, {Label: "I don't know"},
			},
		},
		{
			Question: "Which desktop environment, if any?",
			Header:   "Desktop environment",
			Options: []models.QuestionOption{
				{Label: "GNOME"}, {Label: "KDE Plasma"}, {Label: "XFCE"},
				{Label: "None (server/headless)"}, {Label: "I don't know"},
			},
		},
	}
}

// Normalize applies spec §4.7's post-processing rules to a raw set of
// answers keyed by field name, producing the persisted SystemProfileData.
func Normalize(answers map[string]string) models.SystemProfileData {
	distro := clean(answers[FieldDistro])
	version := clean(answers[FieldVersion])
	pm := clean(answers[FieldPackageManager])
	shell := clean(answers[FieldShell])
	de := clean(answers[FieldDesktopEnvironment])

	if pm == "Auto-detect" {
		pm = resolvePackageManager(distro)
	}
	if shell == "Auto-detect" {
		shell = "bash"
	}

	return models.SystemProfileData{
		Distro:             placeholderToUnknown(distro),
		Version:            placeholderToUnknown(version),
		PackageManager:     placeholderToUnknown(pm),
		Shell:              placeholderToUnknown(shell),
		DesktopEnvironment: placeholderToUnknown(de),
		DetectedAt:         time.Now(),
	}
}

func clean(s string) string { return strings.TrimSpace(s) }

func placeholderToUnknown(s string) string {
	if s == "" || s == "I don't know" {
		return "Unknown"
	}
	return s
}

// resolvePackageManager derives a package manager from a distro name via
// the fixed family table (spec §4.7); unrecognized or missing distros
// default to apt, matching the source's fallback.
func resolvePackageManager(distro string) string {
	lower := strings.ToLower(distro)
	for family, pm := range distroPackageManager {
		if strings.Contains(lower, family) {
			return pm
		}
	}
	return "apt"
}

// ToLegacyProfile projects a normalized SystemProfileData into the
// SystemProfile shape stored alongside it for backward-compatible readers
// (spec §4.7 "legacy-shaped SystemProfile with null fields for unknown
// ones" — "Unknown" values are omitted rather than carried over literally).
func ToLegacyProfile(d models.SystemProfileData) models.SystemProfile {
	p := models.SystemProfile{CollectedAt: d.DetectedAt}
	if d.Distro != "Unknown" {
		p.Distro = d.Distro
	}
	if d.Version != "Unknown" {
		p.DistroVersion = d.Version
	}
	if d.PackageManager != "Unknown" {
		p.PackageManager = d.PackageManager
	}
	if d.Shell != "Unknown" {
		p.Shell = d.Shell
	}
	if d.DesktopEnvironment != "Unknown" {
		p.DesktopEnvironment = d.DesktopEnvironment
	}
	return p
}

// Collector drives interactive collection and persists the result through
// the Store capability.
type Collector struct {
	store store.Store
}

// New creates a Collector backed by s.
func New(s store.Store) *Collector {
	return &Collector{store: s}
}

// CollectInteractive asks the fixed question set one at a time via ask and
// returns the normalized profile. It does not persist; callers that want
// persistence call Persist afterward.
func (c *Collector) CollectInteractive(ctx context.Context, ask AskOne) (models.SystemProfileData, error) {
	fieldOrder := []string{FieldDistro, FieldVersion, FieldPackageManager, FieldShell, FieldDesktopEnvironment}
	answers := make(map[string]string, len(fieldOrder))
	for i, q := range Questions() {
		answer, err := ask(ctx, q)
		if err != nil {
			return models.SystemProfileData{}, err
		}
		answers[fieldOrder[i]] = answer
	}
	return Normalize(answers), nil
}

// Persist writes the normalized profile plus its legacy projection to the
// chat store (spec §4.7 "stores a SystemProfileData ... and a legacy-shaped
// SystemProfile").
func (c *Collector) Persist(ctx context.Context, chatID string, profile models.SystemProfileData) error {
	return c.store.UpdateChatSystemProfile(ctx, chatID, ToLegacyProfile(profile))
}

// EnsureProfile implements spec §4.7's re-entrant-safe confirmation flow:
// if chatID already has a complete profile, ask a single confirmation
// question; a confirmed "yes" returns it unchanged, anything else falls
// through to full interactive collection (which is then persisted).
func (c *Collector) EnsureProfile(ctx context.Context, chatID string, ask AskOne) (models.SystemProfileData, error) {
	chat, err := c.store.FindChatByID(ctx, chatID)
	existing := extractExisting(chat, err)

	if existing != nil && isCompleteLegacy(*existing) {
		confirmed, err := ask(ctx, confirmationQuestion(*existing))
		if err != nil {
			return models.SystemProfileData{}, err
		}
		if strings.EqualFold(strings.TrimSpace(confirmed), "yes") {
			return fromLegacyProfile(*existing), nil
		}
	}

	collected, err := c.CollectInteractive(ctx, ask)
	if err != nil {
		return models.SystemProfileData{}, err
	}
	if err := c.Persist(ctx, chatID, collected); err != nil {
		return models.SystemProfileData{}, err
	}
	return collected, nil
}

func extractExisting(chat store.ChatContext, err error) *models.SystemProfile {
	if err != nil {
		return nil
	}
	if chat.ContextProfile != nil {
		return chat.ContextProfile
	}
	return chat.LegacySystemProfile
}

func isCompleteLegacy(p models.SystemProfile) bool {
	return p.Distro != "" && p.PackageManager != "" && p.Shell != "" && p.DesktopEnvironment != ""
}

func fromLegacyProfile(p models.SystemProfile) models.SystemProfileData {
	return models.SystemProfileData{
		Distro:             p.Distro,
		Version:            p.DistroVersion,
		PackageManager:     p.PackageManager,
		Shell:              p.Shell,
		DesktopEnvironment: p.DesktopEnvironment,
		DetectedAt:         p.CollectedAt,
	}
}

func confirmationQuestion(p models.SystemProfile) models.Question {
	return models.Question{
		Question: "I have you down as " + p.Distro + " with " + p.PackageManager + " and " + p.Shell + ". Still accurate?",
		Header:   "Confirm system profile",
		Options:  []models.QuestionOption{{Label: "yes"}, {Label: "no"}},
	}
}
