package router

import (
	"time"
)

// Stage is the last routing state an event reached.
type Stage string

const (
	StageReceived        Stage = "received"
	StageParsed          Stage = "parsed"
	StageResolved        Stage = "resolved"
	StageAuthorized      Stage = "authorized"
	StageCooldownChecked Stage = "cooldown_checked"
	StageDispatched      Stage = "dispatched"
)

// Status is the routing verdict.
type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusRejected   Status = "rejected"
	StatusIgnored    Status = "ignored"
)

// Reason explains a Rejected or Ignored outcome.
type Reason string

const (
	ReasonNone Reason = ""

	// Ignored.
	ReasonNotCandidate    Reason = "not_candidate"
	ReasonNoPrefix        Reason = "no_prefix"
	ReasonSilentChannel   Reason = "silent_channel"
	ReasonUnknownAlias    Reason = "unknown_alias"
	ReasonInactive        Reason = "inactive"
	ReasonWhisperDisabled Reason = "whisper_disabled"

	// Rejected.
	ReasonConfigUnavailable   Reason = "config_unavailable"
	ReasonUnknownHandler      Reason = "unknown_handler"
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonCooldown            Reason = "cooldown"
	ReasonCooldownUnavailable Reason = "cooldown_unavailable"
)

// Outcome is the result of routing one event.
type Outcome struct {
	Stage     Stage
	Status    Status
	Reason    Reason
	CommandID int32
	// DeniedPermission is set for ReasonPermissionDenied.
	DeniedPermission int32
	// Remaining is set for ReasonCooldown.
	Remaining time.Duration
	// Err carries the domain error kind for rejections.
	Err error
}

func ignored(stage Stage, reason Reason) Outcome {
	return Outcome{Stage: stage, Status: StatusIgnored, Reason: reason}
}

func rejected(stage Stage, reason Reason, cmdID int32, err error) Outcome {
	return Outcome{Stage: stage, Status: StatusRejected, Reason: reason, CommandID: cmdID, Err: err}
}
