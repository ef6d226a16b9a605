package sessions

import "fmt"

// Reason classifies why an operation was denied. Empty on allowed decisions.
type Reason string

const (
	ReasonNone                      Reason = ""
	ReasonNoInProgressSession       Reason = "no_in_progress_session"
	ReasonMultipleInProgressSession Reason = "multiple_in_progress_sessions"
	ReasonInProgressNotLatest       Reason = "in_progress_not_latest"
	ReasonSessionFull               Reason = "session_full"
	ReasonSessionNotFound           Reason = "session_not_found"
	ReasonSessionFinished           Reason = "session_finished"
	ReasonOpenSessionExists         Reason = "open_session_exists"
	ReasonForbidden                 Reason = "forbidden"
)

// Decision is the outcome of an eligibility check. Denials are ordinary
// values, not errors; errors are reserved for infrastructure failures.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string

	// Session is the resolved target session, set on allowed decisions.
	Session *Session
}

func allow(s *Session) Decision {
	return Decision{Allowed: true, Session: s}
}

func deny(reason Reason, msg string) Decision {
	return Decision{Reason: reason, Message: msg}
}

// Client-facing denial messages. The phrasing is part of the app contract.
func msgNoInProgressSession() string {
	return "Please create a new body image session."
}

func msgMultipleInProgressAdd(n int) string {
	return fmt.Sprintf("There are %d in progress sessions. Please finish all older sessions and leave in progress only the newest one in order to add more body images.", n)
}

func msgInProgressNotLatest() string {
	return "It seems that the latest session is finished while one of the preceding sessions is not. Please finish all in progress sessions and create a new one to add more body images."
}

func msgChosenSessionNotLatest() string {
	return "It seems that the chosen session is not the latest in progress one. Please finish all in progress sessions except the latest one to add more body images."
}

func msgSessionFull() string {
	return "The last session has already three body image sets and you cannot add more. Please finish that session and create a new one to add more body images."
}

func msgFourthSetNotAllowed() string {
	return "Adding 4th body image set to session is not allowed."
}

func msgSessionNotFound(id string) string {
	return fmt.Sprintf("Session with id %s not found.", id)
}

func msgSessionFinished() string {
	return "Session is finished, you cannot add more body images."
}

func msgOpenSessionExists(n int) string {
	return fmt.Sprintf("There are %d in progress sessions. Please finish all older sessions in order to create a new one.", n)
}

func msgForbidden(clientID string) string {
	return fmt.Sprintf("You cannot access client with id %s.", clientID)
}
