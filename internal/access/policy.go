// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package access classifies request paths by the credentials they require.
package access

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/ironlog/ironlog/internal/auth"
)

// Level is what a path demands of the caller.
type Level uint8

// Levels, weakest first.
const (
	Public Level = iota
	Authenticated
	AdminOnly
)

func (l Level) String() string {
	switch l {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin"
	default:
		return "unknown"
	}
}

// Role returns the minimum role for the level. Public paths return 0.
func (l Level) Role() auth.Role {
	switch l {
	case Authenticated:
		return auth.RoleUser
	case AdminOnly:
		return auth.RoleAdmin
	default:
		return 0
	}
}

// Rules lists glob patterns, '/' separated. Paths matching neither list
// require a session.
type Rules struct {
	Public []string
	Admin  []string
}

// DefaultRules covers the web app: the login and invite pages, the JSON API
// (whose handlers authenticate on their own and answer with status codes
// rather than redirects) and static assets are public; /admin needs the admin
// role.
func DefaultRules() Rules {
	return Rules{
		Public: []string{
			"/login", "/login/**",
			"/accept-invite", "/accept-invite/**",
			"/api", "/api/**",
			"/_next/**", "/icons/**", "/images/**",
			"/favicon.ico",
			// any path whose last segment has an extension
			"**/*.*",
		},
		Admin: []string{"/admin", "/admin/**"},
	}
}

type rule struct {
	pattern string
	glob    glob.Glob
}

// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	public []rule
	admin  []rule
}

// NewPolicy compiles rules. An invalid pattern is an error.
func NewPolicy(rules Rules) (*Policy, error) {
	public, err := compileRules("public", rules.Public)
	if err != nil {
		return nil, err
	}
	admin, err := compileRules("admin", rules.Admin)
	if err != nil {
		return nil, err
	}
	return &Policy{public: public, admin: admin}, nil
}

// DefaultPolicy compiles DefaultRules and panics if they are invalid.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRules())
	if err != nil {
		panic("invalid pattern in DefaultRules: " + err.Error())
	}
	return p
}

func compileRules(kind string, patterns []string) ([]rule, error) {
	out := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.In("access").
				Code("INVALID_ROUTE_PATTERN").
				With("kind", kind).
				With("pattern", p).
				Wrap(err)
		}
		out = append(out, rule{pattern: p, glob: g})
	}
	return out, nil
}

// Classify returns the level required for urlPath. The path is cleaned
// first so dot segments cannot step out of a protected prefix.
func (p *Policy) Classify(urlPath string) Level {
	clean := path.Clean("/" + strings.TrimPrefix(urlPath, "/"))

	// admin is checked first so an asset-looking name under /admin stays gated
	if matchAny(p.admin, clean) {
		return AdminOnly
	}
	if matchAny(p.public, clean) {
		return Public
	}
	return Authenticated
}

func matchAny(rules []rule, s string) bool {
	for _, r := range rules {
		if r.glob.Match(s) {
			return true
		}
	}
	return false
}
