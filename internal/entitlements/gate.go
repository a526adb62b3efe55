package entitlements

import "clubdesk/internal/plans"

// Gate wraps render so that fallback is produced instead whenever allowed
// reports false. The check runs on every call, not when the wrapper is
// built.
func Gate[T any](allowed func() bool, render, fallback func() T) func() T {
	return func() T {
		if allowed != nil && allowed() {
			return render()
		}
		if fallback == nil {
			var zero T
			return zero
		}
		return fallback()
	}
}

// GateFeature gates render on e having f.
func GateFeature[T any](e *Engine, f plans.Feature, render, fallback func() T) func() T {
	return Gate(func() bool { return e.HasFeature(f) }, render, fallback)
}
