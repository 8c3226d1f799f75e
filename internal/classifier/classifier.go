// Package classifier implements the Query Classifier (spec §4.6): a pure,
// pattern-based function from a user message to an {intent, complexity}
// classification, with no randomness or I/O (spec §8 testable property 9).
package classifier

import (
	"regexp"
	"strings"

	"github.com/orito-ai/orito-core/pkg/models"
)

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup|good morning|good afternoon|good evening|thanks|thank you|bye|goodbye|see ya|cheers)\b`)

	shortFollowUpPattern = regexp.MustCompile(`(?i)^\s*(ok|okay|sure|yes|no|yeah|nope|got it|makes sense|cool|great|nice|what about|and then|why)\b`)

	nonLinuxTopicPattern = regexp.MustCompile(`(?i)\b(poem|recipe|joke|weather|stock price|sports score|movie recommendation|dating advice|horoscope)\b`)

	linuxKeywordPattern = regexp.MustCompile(`(?i)\b(linux|ubuntu|debian|fedora|arch|centos|rhel|terminal|shell|bash|zsh|kernel|systemd|apt|dnf|pacman|yum|package|command|cli)\b`)

	systemActionPattern = regexp.MustCompile(`(?i)\b(install|uninstall|remove|configure|set up|setup|enable|disable|update|upgrade|restart|start|stop|mount|partition|format)\b`)

	repairKeywordPattern = regexp.MustCompile(`(?i)\b(fix|repair|troubleshoot|debug|broken|error|fails?|failing|crash(ed|es|ing)?|not working|won't start|doesn't work)\b`)

	discoveryOutputPrefix = regexp.MustCompile(`(?i)^\s*(NAME=|PRETTY_NAME=|ID=|VERSION=|uname|cat /etc)`)

	complexTopicPattern = regexp.MustCompile(`(?i)\b(kubernetes|k8s|docker|container|cluster|error|exception|stack trace|kernel panic)\b`)

	whatIsPattern = regexp.MustCompile(`(?i)^\s*(what is|what's|explain|tell me about)\b`)

	installConfigureKeyword = regexp.MustCompile(`(?i)\b(install|configure|set up|setup)\b`)
)

const shortMessageThreshold = 100

// Classify is a pure function mapping message to {intent, complexity}
// per spec §4.6's ordered rules; first match wins.
func Classify(message string) models.Classification {
	trimmed := strings.TrimSpace(message)

	// Rule 1: greeting/thanks/farewell/small-talk.
	if greetingPattern.MatchString(trimmed) {
		return models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexitySimple}
	}

	// Rule 2: short conversational follow-up.
	if len(trimmed) < shortMessageThreshold && shortFollowUpPattern.MatchString(trimmed) {
		return models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexitySimple}
	}

	// Rule 3: non-Linux topic without any Linux/terminal keyword.
	if nonLinuxTopicPattern.MatchString(trimmed) && !linuxKeywordPattern.MatchString(trimmed) {
		return models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexityDecline}
	}

	// Rule 4: system-action patterns.
	if systemActionPattern.MatchString(trimmed) {
		if repairKeywordPattern.MatchString(trimmed) {
			return models.Classification{Intent: models.IntentRepair, Complexity: models.ComplexityComplex}
		}
		return models.Classification{Intent: models.IntentAction, Complexity: models.ComplexityComplex}
	}

	// Rule 5: discovery-output prefixes.
	if discoveryOutputPrefix.MatchString(trimmed) {
		return models.Classification{Intent: models.IntentSystemDiscovery, Complexity: models.ComplexitySimple}
	}

	// Rule 6: default.
	return models.Classification{Intent: models.IntentInfo, Complexity: models.ComplexityModerate}
}

// DetermineResearchStrategy maps a query and its classified intent to the
// Research agent's strategy bound (spec §4.6).
func DetermineResearchStrategy(query string, intent models.Intent) models.ResearchStrategy {
	trimmed := strings.TrimSpace(query)

	if intent == models.IntentRepair || intent == models.IntentAction || complexTopicPattern.MatchString(trimmed) {
		return models.StrategyDeep
	}

	if len(trimmed) < shortMessageThreshold && whatIsPattern.MatchString(trimmed) && !installConfigureKeyword.MatchString(trimmed) {
		return models.StrategyQuick
	}

	return models.StrategyAdaptive
}

// NeedsSystemProfile reports whether intent requires a collected system
// profile before the turn can proceed meaningfully (spec §4.8 step 5,
// §4.6): action and repair intents condition their plan/validation on the
// target distro, package manager, and shell.
func NeedsSystemProfile(intent models.Intent) bool {
	return intent == models.IntentAction || intent == models.IntentRepair
}
