package pipeline

import "strings"

// Kind identifies a build-pipeline milestone event.
type Kind string

const (
	KindPhaseImplementing  Kind = "phase_implementing"
	KindPhaseImplemented   Kind = "phase_implemented"
	KindCodeReview         Kind = "code_review"
	KindFileRegenerating   Kind = "file_regenerating"
	KindFileRegenerated    Kind = "file_regenerated"
	KindDeploymentComplete Kind = "deployment_completed"
	KindCommandExecuting   Kind = "command_executing"
)

// milestoneKinds is the closed set of kinds the conversational transcript
// reflects. Payload shapes are kind-specific and deliberately not part of
// this contract.
var milestoneKinds = map[Kind]struct{}{
	KindPhaseImplementing:  {},
	KindPhaseImplemented:   {},
	KindCodeReview:         {},
	KindFileRegenerating:   {},
	KindFileRegenerated:    {},
	KindDeploymentComplete: {},
	KindCommandExecuting:   {},
}

// IsMilestone reports membership in the closed milestone set.
func IsMilestone(kind Kind) bool {
	_, ok := milestoneKinds[Kind(strings.TrimSpace(string(kind)))]
	return ok
}

// Event is one inbound notification from the build pipeline. ChatID names
// the conversation the build belongs to.
type Event struct {
	ChatID  string `json:"chatId,omitempty"`
	Kind    Kind   `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}
