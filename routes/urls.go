package routes

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	// ErrNoReverseMatch is returned when no route is registered under the requested name.
	ErrNoReverseMatch = errors.New("no reverse match")
	// ErrMissingParam is returned when a route placeholder has no value.
	ErrMissingParam = errors.New("missing route parameter")
)

// URLs maps route names to path patterns and reverses them into concrete paths.
// Patterns may use gin placeholders (/post/:pk/) or angle placeholders
// (/post/<pk>/, /post/<int:pk>/); both are stored in gin form.
type URLs struct {
	mu       sync.RWMutex
	patterns map[string]string
}

// NewURLs returns an empty route table.
func NewURLs() *URLs {
	return &URLs{patterns: map[string]string{}}
}

// Add records pattern under name and returns the gin form of the pattern.
// Registering the same name twice panics, as gin does for duplicate paths.
func (u *URLs) Add(name, pattern string) string {
	path := ginPattern(pattern)
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.patterns[name]; ok {
		panic(fmt.Sprintf("route name %q already registered", name))
	}
	u.patterns[name] = path
	return path
}

// Handle registers handlers on r for method and pattern and names the route.
func (u *URLs) Handle(r gin.IRoutes, method, name, pattern string, handlers ...gin.HandlerFunc) {
	full := pattern
	if g, ok := r.(interface{ BasePath() string }); ok {
		full = joinPaths(g.BasePath(), pattern)
	}
	u.Add(name, full)
	r.Handle(method, ginPattern(pattern), handlers...)
}

// Pattern returns the stored pattern for name.
func (u *URLs) Pattern(name string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	p, ok := u.patterns[name]
	return p, ok
}

// Reverse builds the path for the named route, escaping each parameter value.
func (u *URLs) Reverse(name string, params map[string]string) (string, error) {
	pattern, ok := u.Pattern(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoReverseMatch, name)
	}

	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		key, wildcard := placeholder(seg)
		if key == "" {
			continue
		}
		val, ok := params[key]
		if !ok || val == "" {
			return "", fmt.Errorf("%w: %q for route %q", ErrMissingParam, key, name)
		}
		if wildcard {
			segments[i] = strings.TrimPrefix(val, "/")
		} else {
			segments[i] = url.PathEscape(val)
		}
	}
	return strings.Join(segments, "/"), nil
}

// placeholder reports the parameter name of a gin path segment.
func placeholder(seg string) (string, bool) {
	switch seg[0] {
	case ':':
		return seg[1:], false
	case '*':
		return seg[1:], true
	}
	return "", false
}

// ginPattern rewrites <name> and <conv:name> segments as :name.
func ginPattern(pattern string) string {
	if !strings.Contains(pattern, "<") {
		return pattern
	}
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if len(seg) > 2 && seg[0] == '<' && seg[len(seg)-1] == '>' {
			inner := seg[1 : len(seg)-1]
			if j := strings.LastIndexByte(inner, ':'); j >= 0 {
				inner = inner[j+1:]
			}
			segments[i] = ":" + inner
		}
	}
	return strings.Join(segments, "/")
}

func joinPaths(base, rel string) string {
	if rel == "" {
		return base
	}
	joined := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
	if strings.HasSuffix(rel, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
