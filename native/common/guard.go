// Package common carries the operational switches shared by the native
// module engines. The pause guard sits in front of every mutating operation
// so an operator can halt a module from configuration without touching its
// state.
package common

import "errors"

// ErrModulePaused is returned when a mutating operation reaches a module the
// operator has switched off.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently paused. A nil view
// means nothing is paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard checks the pause switch for the named module. Callers without a
// configured view, or guarding an unnamed module, pass through.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
