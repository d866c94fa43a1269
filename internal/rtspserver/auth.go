// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rtspserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
)

const realm = "dart"

// Credentials protect a mount with Basic authentication.
type Credentials struct {
	Username string
	Password string
}

// basicAuth extracts Basic credentials from an RTSP request header. RTSP
// reuses the HTTP Authorization syntax, so the parsing is delegated to
// net/http.
func basicAuth(h base.Header) (user, pass string, ok bool) {
	values := h["Authorization"]
	if len(values) == 0 {
		return "", "", false
	}
	req := http.Request{Header: http.Header{"Authorization": []string(values)}}
	return req.BasicAuth()
}

// authorize reports whether the request carries creds. A nil creds allows
// everything.
func authorize(creds *Credentials, h base.Header) bool {
	if creds == nil {
		return true
	}
	user, pass, ok := basicAuth(h)
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Password)) == 1
	return userOK && passOK
}

func unauthorized() *base.Response {
	return &base.Response{
		StatusCode: base.StatusUnauthorized,
		Header: base.Header{
			"WWW-Authenticate": base.HeaderValue{`Basic realm="` + realm + `"`},
		},
	}
}
