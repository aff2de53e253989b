// Package lookup serves the enumeration lists used to fill step forms.
// A list is fetched from the backend once and cached; when the fetch fails
// or comes back empty a fixed fallback is served instead and nothing is cached.
package lookup

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/claude/coachwizard/internal/apiclient"
)

// Fetcher retrieves one list from the backend. *apiclient.Client implements it.
type Fetcher interface {
	Options(ctx context.Context, list apiclient.List, arg string) ([]string, error)
}

var fallbacks = map[apiclient.List][]string{
	apiclient.Sports:            {"cricket", "football", "swimming", "running", "tennis", "basketball", "weightlifting", "gymnastics"},
	apiclient.FitnessLevels:     {"beginner", "intermediate", "advanced", "elite"},
	apiclient.DietTypes:         {"vegetarian", "vegan", "keto", "paleo", "balanced", "high_protein", "no_restrictions"},
	apiclient.CompetitionTypes:  {"olympics", "commonwealth", "world_championship", "national", "local"},
	apiclient.CompetitionLevels: {"international", "national", "state", "club"},
	apiclient.SportFormats:      {"tournament", "league", "friendly"},
}

// Fallback returns a copy of the built-in list served when list cannot be fetched.
func Fallback(list apiclient.List) []string {
	return append([]string(nil), fallbacks[list]...)
}

// Catalog caches fetched lists. Safe for concurrent use.
type Catalog struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][]string
}

// New creates a Catalog backed by fetcher.
func New(fetcher Fetcher, logger *slog.Logger) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string][]string),
	}
}

// Options returns the values for list. It never fails: an unreachable backend,
// an error answer or an empty list all yield the fallback.
func (c *Catalog) Options(ctx context.Context, list apiclient.List, arg string) []string {
	key := string(list) + "/" + arg

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return append([]string(nil), cached...)
	}

	values, err := c.fetcher.Options(ctx, list, arg)
	if err != nil {
		c.logger.Warn("lookup fetch failed, using fallback", "list", list, "arg", arg, "error", err)
		return Fallback(list)
	}
	if len(values) == 0 {
		c.logger.Warn("lookup list empty, using fallback", "list", list, "arg", arg)
		return Fallback(list)
	}

	c.mu.Lock()
	c.cache[key] = values
	c.mu.Unlock()
	return append([]string(nil), values...)
}

// Label renders an enumeration value for display: "high_protein" becomes "High Protein".
func Label(value string) string {
	words := strings.FieldsFunc(value, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
