// Package api talks to the club's REST API: base URL selection, link
// building that preserves the selected base, and the resource fetchers.
package api

import (
	"log/slog"
	"net/url"
	"strings"
)

// Default bases per environment.
const (
	LocalBase = "http://127.0.0.1:5000/api/"
	DevBase   = "https://gvtvwamhvf.execute-api.us-west-2.amazonaws.com/dev/api/"
	ProdBase  = "https://gvtvwamhvf.execute-api.us-west-2.amazonaws.com/prod/api/"
)

// QueryParam is the query parameter that carries a base override between pages.
const QueryParam = "api"

// Environment names understood by ResolveBase.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
)

// Config holds the resolved API base. The zero value is not usable; build
// one with NewConfig or ResolveBase.
type Config struct {
	base string
}

// NewConfig normalizes base and wraps it.
// PRE: base is an absolute http(s) URL
// POST: Base() ends with exactly one slash
func NewConfig(base string) Config {
	return Config{base: Normalize(base)}
}

// ResolveBase picks the explicit override, else the default for env.
// PRE: none
// POST: Returns a base ending in exactly one slash
func ResolveBase(override, env string) Config {
	if strings.TrimSpace(override) != "" {
		return NewConfig(override)
	}
	switch env {
	case EnvLocal:
		return NewConfig(LocalBase)
	case EnvDev:
		return NewConfig(DevBase)
	default:
		return NewConfig(ProdBase)
	}
}

// Normalize trims whitespace and forces a single trailing slash.
func Normalize(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/"
}

// Base returns the normalized base, trailing slash included.
func (c Config) Base() string {
	return c.base
}

// Param returns the base as carried in the api query parameter.
func (c Config) Param() string {
	return strings.TrimSuffix(c.base, "/")
}

// Join appends path to the base, collapsing the slash at the seam.
// PRE: none
// POST: Exactly one slash separates base and path
func (c Config) Join(path string) string {
	return c.base + strings.TrimLeft(path, "/")
}

// Link resolves href against the current page URL and sets the api query
// parameter so the next page talks to the same backend. The result is
// path plus query, suitable for an href on this site.
// PRE: href is a relative or site-absolute reference
// POST: The api parameter equals Param(); other parameters are kept
func (c Config) Link(href string, current *url.URL) string {
	if current == nil {
		current = &url.URL{Path: "/"}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := current.ResolveReference(ref)
	q := resolved.Query()
	q.Set(QueryParam, c.Param())
	out := resolved.EscapedPath()
	if out == "" {
		out = "/"
	}
	out += "?" + q.Encode()
	if resolved.Fragment != "" {
		out += "#" + resolved.EscapedFragment()
	}
	return out
}

// Selector maps a page's api override onto an allowed Config. The server
// makes the calls, so only bases on the allow-list may be selected.
type Selector struct {
	def     Config
	allowed map[string]Config
}

// NewSelector builds a selector around the default base.
// PRE: def is a resolved Config
// POST: def is always allowed
func NewSelector(def Config, allowed []string) *Selector {
	s := &Selector{def: def, allowed: map[string]Config{def.Param(): def}}
	for _, a := range allowed {
		if strings.TrimSpace(a) == "" {
			continue
		}
		cfg := NewConfig(a)
		s.allowed[cfg.Param()] = cfg
	}
	return s
}

// Default returns the default Config.
func (s *Selector) Default() Config {
	return s.def
}

// Select returns the Config for override. An empty override selects the
// default; an override not on the allow-list falls back to the default and
// reports false.
func (s *Selector) Select(override string) (Config, bool) {
	if strings.TrimSpace(override) == "" {
		return s.def, true
	}
	if cfg, ok := s.allowed[NewConfig(override).Param()]; ok {
		return cfg, true
	}
	slog.Warn("api_override_rejected", "override", override, "default", s.def.Param())
	return s.def, false
}
