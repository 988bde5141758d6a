// Package muxnormalizer rewrites request paths to the casing of the
// registered routes, e.g. /API/Login/ is served as /api/login.
package muxnormalizer

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type Normalizer struct {
	// routes holds the static segments of each route, by segment count
	routes map[int][]map[int]string
}

// New indexes the path templates of all routes registered on r.
func New(r *mux.Router) (*Normalizer, error) {
	n := &Normalizer{
		routes: make(map[int][]map[int]string),
	}
	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		template, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		segments := splitPath(template)
		static := make(map[int]string, len(segments))
		for i, seg := range segments {
			if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
				continue
			}
			static[i] = seg
		}
		n.routes[len(segments)] = append(n.routes[len(segments)], static)
		return nil
	})
	return n, err
}

// Middleware returns an HTTP middleware that normalizes request paths.
func (n *Normalizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = n.Normalize(r.URL.Path)
		r.URL.RawPath = ""
		next.ServeHTTP(w, r)
	})
}

// Normalize drops empty segments and a trailing slash, and applies the
// casing of the first route whose static segments match case-insensitively.
func (n *Normalizer) Normalize(path string) string {
	segments := splitPath(path)
	for _, static := range n.routes[len(segments)] {
		if matchFold(segments, static) {
			for i, canonical := range static {
				segments[i] = canonical
			}
			break
		}
	}
	return "/" + strings.Join(segments, "/")
}

func matchFold(segments []string, static map[int]string) bool {
	for i, canonical := range static {
		if !strings.EqualFold(segments[i], canonical) {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
