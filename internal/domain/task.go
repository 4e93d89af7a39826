package domain

import "strings"

// TaskKind is encoded in the task subject; HubSpot has no structured field for it.
type TaskKind string

const (
	TaskFollowup     TaskKind = "followup"
	TaskCancellation TaskKind = "cancellation"
	TaskOther        TaskKind = "other"
)

const (
	FollowupSubject     = "Followup Task"
	CancellationSubject = "Cancellation Task"
)

// Task status values of hs_task_status.
const (
	TaskNotStarted = "NOT_STARTED"
	TaskCompleted  = "COMPLETED"
)

func TaskKindFromSubject(subject string) TaskKind {
	switch {
	case strings.Contains(subject, FollowupSubject):
		return TaskFollowup
	case strings.Contains(subject, CancellationSubject):
		return TaskCancellation
	}
	return TaskOther
}

// ParseTaskKind maps the dashboard's "type" field; anything unknown is a follow-up.
func ParseTaskKind(s string) TaskKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancellation", "cancel", "cancellation task":
		return TaskCancellation
	}
	return TaskFollowup
}

// TaskSubject builds "Followup Task - ACME GmbH" style subjects.
func TaskSubject(kind TaskKind, label string) string {
	prefix := FollowupSubject
	if kind == TaskCancellation {
		prefix = CancellationSubject
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return prefix
	}
	return prefix + " - " + label
}

// NoteSeparator joins appended note text.
const NoteSeparator = "\n---\n"

// AppendNote concatenates text onto an existing note body.
func AppendNote(body, text string) string {
	if strings.TrimSpace(body) == "" {
		return text
	}
	return body + NoteSeparator + text
}

// ContractNotePrefix marks notes created by the contract upload.
const ContractNotePrefix = "Paper Quote:"
