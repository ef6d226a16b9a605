// Package main provides a CI-friendly HTTP smoke test for the Contour API.
//
// It validates:
//   - /healthz liveness
//   - login -> token pair
//   - authenticated client listing
//   - GetLatestInProgress classification (200 or 404 with a message)
//   - optional full capture flow: create, two appends, refusal of the fourth
//     image set, when -client names an existing client
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// A valid 1x1 transparent PNG, base64-encoded. Small enough to keep smoke
// runs fast, real enough to pass decoding.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type smoke struct {
	base    string
	hc      *http.Client
	token   string
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "API base URL")
		email    = flag.String("email", "", "Practitioner login email (required)")
		password = flag.String("password", "", "Practitioner login password (required)")
		clientID = flag.String("client", "", "Client id for the capture flow (optional)")
		timeout  = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if *email == "" || *password == "" {
		fatalf("-email and -password are required")
	}

	s := &smoke{
		base:    strings.TrimRight(*baseURL, "/"),
		hc:      &http.Client{Timeout: *timeout},
		verbose: *verbose,
	}

	s.mustHealthz()
	s.mustLogin(*email, *password)
	s.mustListClients()

	if *clientID != "" {
		s.mustCaptureFlow(*clientID)
	} else if *verbose {
		fmt.Println("skipping capture flow: -client not set")
	}

	fmt.Println("SMOKE OK")
}

func (s *smoke) mustHealthz() {
	status, body := s.do(http.MethodGet, "/healthz", nil)
	if status != http.StatusOK {
		fatalf("healthz: status=%d body=%q", status, body)
	}
	s.logf("healthz ok")
}

func (s *smoke) mustLogin(email, password string) {
	status, body := s.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		fatalf("login: status=%d body=%q", status, body)
	}

	var resp struct {
		AuthToken    string `json:"authToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.AuthToken == "" || resp.RefreshToken == "" {
		fatalf("login: bad token pair in %q", body)
	}
	s.token = resp.AuthToken
	s.logf("login ok")
}

func (s *smoke) mustListClients() {
	status, body := s.do(http.MethodGet, "/api/v1/Clients?pageNumber=1&pageSize=5", nil)
	if status != http.StatusOK {
		fatalf("clients: status=%d body=%q", status, body)
	}

	var resp struct {
		Clients    []json.RawMessage `json:"clients"`
		TotalCount int               `json:"totalCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatalf("clients: bad body %q", body)
	}
	s.logf("clients ok: page=%d total=%d", len(resp.Clients), resp.TotalCount)
}

func (s *smoke) mustCaptureFlow(clientID string) {
	// A fresh client must classify as "no in-progress session".
	status, body := s.do(http.MethodPost, "/api/v1/Sessions/GetLatestInProgress", map[string]any{
		"clientId": clientID,
	})
	switch status {
	case http.StatusNotFound:
		s.logf("latest-in-progress: none open (404), creating")
	case http.StatusOK:
		fatalf("capture flow needs a client without open sessions; one exists: %q", body)
	default:
		fatalf("latest-in-progress: status=%d body=%q", status, body)
	}

	status, body = s.do(http.MethodPost, "/api/v1/Sessions/Create", sessionPayload("clientId", clientID))
	if status != http.StatusCreated {
		fatalf("create: status=%d body=%q", status, body)
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.SessionID == "" {
		fatalf("create: bad body %q", body)
	}
	s.logf("create ok: session=%s", created.SessionID)

	for i := 0; i < 2; i++ {
		status, body = s.do(http.MethodPost, "/api/v1/Sessions/Update", sessionPayload("sessionId", created.SessionID))
		if status != http.StatusOK {
			fatalf("update #%d: status=%d body=%q", i+2, status, body)
		}
	}
	s.logf("appends ok: session holds 3 image sets")

	status, body = s.do(http.MethodPost, "/api/v1/Sessions/Update", sessionPayload("sessionId", created.SessionID))
	if status != http.StatusUnprocessableEntity {
		fatalf("fourth set: expected 422, got status=%d body=%q", status, body)
	}
	s.logf("fourth set refused ok")
}

func sessionPayload(idKey, idValue string) map[string]any {
	return map[string]any{
		idKey:            idValue,
		"imagedataFront": tinyPNG,
		"imagedataBack":  tinyPNG,
		"imagedataLeft":  tinyPNG,
		"imagedataRight": tinyPNG,
	}
}

func (s *smoke) do(method, path string, payload map[string]any) (int, []byte) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			fatalf("%s %s: marshal: %v", method, path, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.base+path, reqBody)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	return resp.StatusCode, body
}

func (s *smoke) logf(format string, args ...any) {
	if s.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "SMOKE FAIL: "+format+"\n", args...)
	os.Exit(1)
}
