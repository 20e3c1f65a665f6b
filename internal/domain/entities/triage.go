package entities

import "strings"

// Severity is the four-level triage urgency scale
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists the levels from least to most urgent
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the four levels
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders severities; -1 for unknown values
func (s Severity) Rank() int {
	for i, level := range Severities {
		if level == s {
			return i
		}
	}
	return -1
}

// ParseSeverity matches a level case-insensitively
func ParseSeverity(raw string) (Severity, bool) {
	raw = strings.TrimSpace(raw)
	for _, level := range Severities {
		if strings.EqualFold(string(level), raw) {
			return level, true
		}
	}
	return "", false
}

// NormalizeSeverity maps model output onto the four levels, defaulting to Medium
func NormalizeSeverity(raw string) Severity {
	if level, ok := ParseSeverity(raw); ok {
		return level
	}
	lower := strings.ToLower(raw)
	for i := len(Severities) - 1; i >= 0; i-- {
		if strings.Contains(lower, strings.ToLower(string(Severities[i]))) {
			return Severities[i]
		}
	}
	return SeverityMedium
}

// SeverityAnalysis is the result of a quick severity check
type SeverityAnalysis struct {
	Severity        Severity `json:"severity"`
	Recommendations string   `json:"recommendations"`
	AIPowered       bool     `json:"aiPowered"`
}

// Report is the structured consultation outcome
type Report struct {
	Severity           Severity `json:"severity"`
	Summary            string   `json:"summary"`
	PossibleConditions []string `json:"possibleConditions"`
	Recommendations    []string `json:"recommendations"`
	Medications        []string `json:"medications"`
	NextSteps          []string `json:"nextSteps"`
	AIPowered          bool     `json:"aiPowered"`
}

// ReportRequest carries the completed intake answers
type ReportRequest struct {
	Name     string `json:"name"`
	Age      string `json:"age"`
	Symptoms string `json:"symptoms"`
	History  string `json:"history"`
	Language Locale `json:"language"`
}

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a consultation chat
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatReply is the assistant's answer to a chat turn
type ChatReply struct {
	Reply     string `json:"reply"`
	AIPowered bool   `json:"aiPowered"`
}

// DocumentAnalysis is the AI reading of an uploaded medical document
type DocumentAnalysis struct {
	Summary         string `json:"summary"`
	Findings        string `json:"findings"`
	Recommendations string `json:"recommendations"`
	AIPowered       bool   `json:"aiPowered"`
}

// UploadedFile describes a stored upload
type UploadedFile struct {
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	Path         string `json:"path"`
}

// ChatContextWindow bounds how many chat entries are sent upstream
const ChatContextWindow = 10

// RecentMessages returns at most the last n entries of history
func RecentMessages(history []ChatMessage, n int) []ChatMessage {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// LastUserMessage returns the content of the most recent user entry
func LastUserMessage(history []ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == ChatRoleUser {
			return history[i].Content
		}
	}
	return ""
}
