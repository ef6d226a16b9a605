package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// auditor records auth events into contour.login_audit. Best effort: audit
// failures are logged and never fail the request.
type auditor struct {
	pool *pgxpool.Pool
}

func (h *Handler) audit(ctx context.Context, r *http.Request, action string, userID *string, meta map[string]any) {
	if h.auditor.pool == nil {
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	var metaJSON []byte
	if meta != nil {
		metaJSON, _ = json.Marshal(meta)
	}

	var ipStr *string
	if ip != nil {
		s := ip.String()
		ipStr = &s
	}

	_, err := h.auditor.pool.Exec(ctx, `
		INSERT INTO contour.login_audit (id, action, user_id, ip, user_agent, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, ulid.Make().String(), action, userID, ipStr, ua, metaJSON)
	if err != nil {
		h.log.Error("auth.audit.fail", "err", err, "action", action)
	}
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
