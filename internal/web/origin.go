package web

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin reports whether r's Origin header names this server. A request
// without an Origin (curl, the CLI, tests) counts as same-origin.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, strings.TrimSpace(r.Host))
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// allowWrite rejects state-changing requests from other sites: a foreign
// Origin, or a body that is not application/json (the only type that forces
// a CORS preflight, which this server never answers).
func allowWrite(w http.ResponseWriter, r *http.Request) bool {
	if !sameOrigin(r) {
		http.Error(w, "cross-origin request rejected", http.StatusForbidden)
		return false
	}
	if !isJSONRequest(r) {
		http.Error(w, "expected application/json", http.StatusUnsupportedMediaType)
		return false
	}
	return true
}
