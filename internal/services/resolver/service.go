// Package resolver selects the targets a run processes.
package resolver

import (
	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
)

// SelectAll selects every non-optional target.
const SelectAll = "all"

// Service defines the interface for target selection.
type Service interface {
	Resolve(selector string, targets []models.Target) []models.Target
}

// Impl implements the resolver Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new target resolver.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Resolve returns the targets matching selector in configuration order.
// "all" picks every target that is not optional; any other selector picks every target
// carrying exactly that tag, optional or not. An empty result is not an error.
func (s *Impl) Resolve(selector string, targets []models.Target) []models.Target {
	var selected []models.Target
	for _, t := range targets {
		if matches(selector, t) {
			selected = append(selected, t)
		}
	}

	s.logger.Debug().
		Str("selector", selector).
		Int("selected", len(selected)).
		Int("configured", len(targets)).
		Msg("targets resolved")

	return selected
}

func matches(selector string, t models.Target) bool {
	if selector == SelectAll {
		return !t.Optional
	}
	return t.Tag != "" && t.Tag == selector
}
