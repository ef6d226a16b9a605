package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	authapi "contour/cmd/internal/auth/api"
	"contour/cmd/internal/clients"
	"contour/cmd/internal/sessions"
)

// Handler wires the portal routes to the client and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	clients  *clients.Service
	sessions *sessions.Service
}

// NewHandler constructs the portal handler.
func NewHandler(log *slog.Logger, cfg Config, cl *clients.Service, sess *sessions.Service) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if cl == nil || sess == nil {
		return nil, fmt.Errorf("portal: nil service")
	}
	return &Handler{log: log, cfg: cfg, clients: cl, sessions: sess}, nil
}

// Register wires portal routes onto the provided mux behind the bearer-token
// middleware.
func (h *Handler) Register(mux *http.ServeMux, auth *authapi.Authenticator) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/Clients", auth.Require(h.handleClients))
	mux.HandleFunc("/api/v1/Sessions/GetLatestInProgress", auth.Require(h.handleLatestInProgress))
	mux.HandleFunc("/api/v1/Sessions/Create", auth.Require(h.handleCreateSession))
	mux.HandleFunc("/api/v1/Sessions/Update", auth.Require(h.handleUpdateSession))
}

func (h *Handler) handleClients(w http.ResponseWriter, r *http.Request, p authapi.Principal) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	page := clients.NormalizePage(atoiOr(q.Get("pageNumber"), 0), atoiOr(q.Get("pageSize"), 0))
	filter := clients.ListFilter{Term: q.Get("term")}

	list, total, err := h.clients.List(r.Context(), p.AccountID, filter, page)
	if err != nil {
		h.log.Error("portal.clients.list.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	resp := clientListResponse{
		Clients:    make([]clientResponse, 0, len(list)),
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}
	for _, c := range list {
		resp.Clients = append(resp.Clients, toClientResponse(c))
	}
	if page.HasNext(total) {
		resp.NextPage = pageURL(r.URL, filter.Term, page.Number+1, page.Size)
	}
	if page.HasPrevious() {
		resp.PreviousPage = pageURL(r.URL, filter.Term, page.Number-1, page.Size)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLatestInProgress(w http.ResponseWriter, r *http.Request, p authapi.Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req latestInProgressRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.ClientID == "" {
		writeErrors(w, http.StatusBadRequest, "clientId is required.")
		return
	}

	d, err := h.sessions.LatestAddableSession(r.Context(), p.AccountID, req.ClientID)
	if err != nil {
		h.log.Error("portal.sessions.latest.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if !d.Allowed {
		// Ownership is the only 403 here; every eligibility denial is a 404
		// so the mobile app's "create a new session" flow keeps working.
		if d.Reason == sessions.ReasonForbidden {
			writeErrors(w, http.StatusForbidden, d.Message)
			return
		}
		writeErrors(w, http.StatusNotFound, d.Message)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(*d.Session))
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request, p authapi.Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.ClientID == "" {
		writeErrors(w, http.StatusBadRequest, "clientId is required.")
		return
	}

	images, err := decodeImageSet(req.ImagedataFront, req.ImagedataBack, req.ImagedataLeft, req.ImagedataRight)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "All four body images are required as base64 PNG data.")
		return
	}

	sess, d, err := h.sessions.CreateSession(r.Context(), p.AccountID, sessions.CreateInput{
		ClientID: req.ClientID,
		Images:   images,
	})
	if err != nil {
		h.log.Error("portal.sessions.create.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if !d.Allowed {
		writeErrors(w, http.StatusForbidden, d.Message)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request, p authapi.Principal) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req updateSessionRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.SessionID == "" {
		writeErrors(w, http.StatusBadRequest, "sessionId is required.")
		return
	}

	images, err := decodeImageSet(req.ImagedataFront, req.ImagedataBack, req.ImagedataLeft, req.ImagedataRight)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "All four body images are required as base64 PNG data.")
		return
	}

	sess, d, err := h.sessions.AppendImageSet(r.Context(), p.AccountID, sessions.AppendInput{
		SessionID: req.SessionID,
		Images:    images,
	})
	if err != nil {
		h.log.Error("portal.sessions.update.fail", "err", err)
		writeErrors(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if !d.Allowed {
		writeErrors(w, appendDenialStatus(d.Reason), d.Message)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// appendDenialStatus maps append denials to the statuses the mobile clients
// expect: missing session 404, a full session 422, everything else 403.
func appendDenialStatus(reason sessions.Reason) int {
	switch reason {
	case sessions.ReasonSessionNotFound:
		return http.StatusNotFound
	case sessions.ReasonSessionFull:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusForbidden
	}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func pageURL(u *url.URL, term string, number, size int) string {
	q := url.Values{}
	if term != "" {
		q.Set("term", term)
	}
	q.Set("pageNumber", strconv.Itoa(number))
	q.Set("pageSize", strconv.Itoa(size))
	return u.Path + "?" + q.Encode()
}
