package retry

import (
	"slices"

	"github.com/hipnotiq/revisor/pkg/script"
)

// EffectiveText resolves the absolute audioNumber against sections and
// returns the currently-effective corrected text from the ledger. ok is false
// when the number does not resolve or when no manual correction (with
// substitute text) is recorded for that line — the caller should then fall
// back to the original script or the backend transcription.
//
// Lookups fail soft by design: after a reprocess shrinks the script, stale
// audio numbers must resolve to "no mapping", not an error.
func EffectiveText(l *Ledger, sections []script.Section, audioNumber int) (string, bool) {
	si, li, ok := script.ResolveAudioNumber(sections, audioNumber)
	if !ok || l == nil {
		return "", false
	}
	_, text := l.State(si, li)
	if text == nil {
		return "", false
	}
	return *text, true
}

// ManualSet tracks which absolute audio numbers the operator has explicitly
// confirmed as manually corrected. It is session-scoped rendering
// bookkeeping, distinct from the ledger: marking a line changes how the UI
// styles it, nothing more.
type ManualSet map[int]struct{}

// Mark records audioNumber as manually corrected.
func (m ManualSet) Mark(audioNumber int) { m[audioNumber] = struct{}{} }

// Unmark removes audioNumber from the set.
func (m ManualSet) Unmark(audioNumber int) { delete(m, audioNumber) }

// Toggle flips membership of audioNumber and reports the new state.
func (m ManualSet) Toggle(audioNumber int) bool {
	if m.Contains(audioNumber) {
		m.Unmark(audioNumber)
		return false
	}
	m.Mark(audioNumber)
	return true
}

// Contains reports whether audioNumber is marked.
func (m ManualSet) Contains(audioNumber int) bool {
	_, ok := m[audioNumber]
	return ok
}

// Numbers returns the marked audio numbers in ascending order.
func (m ManualSet) Numbers() []int {
	out := make([]int, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
