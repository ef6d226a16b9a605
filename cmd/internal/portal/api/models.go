package api

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"contour/cmd/internal/clients"
	"contour/cmd/internal/sessions"
)

type clientResponse struct {
	ClientID     string     `json:"clientId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	ClientNumber string     `json:"clientNumber,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	CreatedDate  time.Time  `json:"createdDate"`
}

type clientListResponse struct {
	Clients      []clientResponse `json:"clients"`
	PageNumber   int              `json:"pageNumber"`
	PageSize     int              `json:"pageSize"`
	TotalCount   int              `json:"totalCount"`
	NextPage     string           `json:"nextPage,omitempty"`
	PreviousPage string           `json:"previousPage,omitempty"`
}

func toClientResponse(c clients.Client) clientResponse {
	return clientResponse{
		ClientID:     c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		ClientNumber: c.ClientNumber,
		DateOfBirth:  c.DateOfBirth,
		CreatedDate:  c.CreatedAt,
	}
}

type latestInProgressRequest struct {
	ClientID string `json:"clientId"`
}

type createSessionRequest struct {
	ClientID       string `json:"clientId"`
	ImagedataFront string `json:"imagedataFront"`
	ImagedataBack  string `json:"imagedataBack"`
	ImagedataLeft  string `json:"imagedataLeft"`
	ImagedataRight string `json:"imagedataRight"`
}

type updateSessionRequest struct {
	SessionID      string `json:"sessionId"`
	ImagedataFront string `json:"imagedataFront"`
	ImagedataBack  string `json:"imagedataBack"`
	ImagedataLeft  string `json:"imagedataLeft"`
	ImagedataRight string `json:"imagedataRight"`
}

type sessionResponse struct {
	SessionID   string    `json:"sessionId"`
	ClientID    string    `json:"clientId"`
	CreatedDate time.Time `json:"createdDate"`
}

func toSessionResponse(s sessions.Session) sessionResponse {
	return sessionResponse{
		SessionID:   s.ID,
		ClientID:    s.ClientID,
		CreatedDate: s.CreatedAt,
	}
}

var errBadImageData = errors.New("invalid image data")

// decodeImageSet decodes the four base64 image payloads. A data-URL prefix
// ("data:image/png;base64,") is tolerated because some clients send it.
func decodeImageSet(front, back, left, right string) (sessions.ImageSet, error) {
	var is sessions.ImageSet
	var err error

	if is.Front, err = decodeImage(front); err != nil {
		return sessions.ImageSet{}, err
	}
	if is.Back, err = decodeImage(back); err != nil {
		return sessions.ImageSet{}, err
	}
	if is.Left, err = decodeImage(left); err != nil {
		return sessions.ImageSet{}, err
	}
	if is.Right, err = decodeImage(right); err != nil {
		return sessions.ImageSet{}, err
	}
	return is, nil
}

func decodeImage(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+1:]
	}
	if raw == "" {
		return nil, errBadImageData
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(b) == 0 {
		return nil, errBadImageData
	}
	return b, nil
}
