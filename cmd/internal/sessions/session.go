package sessions

import "time"

// MaxBodyImageSets is the hard ceiling of image sets per capture session.
const MaxBodyImageSets = 3

// Status is the lifecycle state of a capture session.
type Status string

const (
	// StatusInProgress means the session may still receive image sets.
	StatusInProgress Status = "in_progress"
	// StatusFinished means the session is permanently read-only.
	StatusFinished Status = "finished"
)

// Session is one capture episode for a client.
type Session struct {
	ID        string
	ClientID  string
	Status    Status
	CreatedAt time.Time

	// FinishedAt is set when the session leaves StatusInProgress.
	FinishedAt *time.Time
}

// InProgress reports whether the session may still receive image sets.
func (s Session) InProgress() bool { return s.Status == StatusInProgress }

// ImageSet is one capture event: exactly four decoded image blobs.
type ImageSet struct {
	Front []byte
	Back  []byte
	Left  []byte
	Right []byte
}

// Complete reports whether all four images are present.
func (is ImageSet) Complete() bool {
	return len(is.Front) > 0 && len(is.Back) > 0 && len(is.Left) > 0 && len(is.Right) > 0
}

// BodyImageSet is a persisted image set. Immutable once created.
type BodyImageSet struct {
	ID        string
	SessionID string
	Images    ImageSet
	CreatedAt time.Time
}
