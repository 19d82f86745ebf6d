package common

import "strings"

// PauseSet is a fixed membership PauseView built from configuration.
type PauseSet map[string]struct{}

// NewPauseSet builds a PauseSet from module names, ignoring blanks.
func NewPauseSet(modules []string) PauseSet {
	set := make(PauseSet, len(modules))
	for _, module := range modules {
		name := strings.ToLower(strings.TrimSpace(module))
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

func (p PauseSet) IsPaused(module string) bool {
	if len(p) == 0 {
		return false
	}
	_, ok := p[strings.ToLower(strings.TrimSpace(module))]
	return ok
}
