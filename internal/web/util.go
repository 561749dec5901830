// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

// maxBodyBytes caps request bodies on every JSON or form endpoint.
const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client may disconnect
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return oops.Code("INVALID_JSON").Wrap(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return oops.Code("INVALID_JSON").Errorf("unexpected data after JSON body")
	}
	return nil
}

// isForm reports whether the request body is url-encoded or multipart form data.
func isForm(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// formOrJSON fills fields from a form body or a flat JSON object of strings.
func formOrJSON(w http.ResponseWriter, r *http.Request, fields ...string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	if isForm(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, oops.Code("INVALID_FORM").Wrap(err)
		}
		for _, f := range fields {
			out[f] = r.PostFormValue(f)
		}
		return out, nil
	}

	var raw map[string]any
	if err := decodeJSON(w, r, &raw); err != nil {
		return nil, err
	}
	for _, f := range fields {
		if s, ok := raw[f].(string); ok {
			out[f] = s
		}
	}
	return out, nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// spaFromDisk serves files from dir and falls back to index.html for
// client-side routes. An empty dir serves 404s.
func spaFromDisk(dir string) http.Handler {
	if dir == "" {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			candidate := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, index)
	})
}
