// Package retry implements the retry ledger: the in-memory record of pending
// manual corrections and regeneration flags an operator accumulates while
// reviewing a generated script, prior to submitting the whole batch to the
// generation backend for reprocessing.
//
// The serialised [Document] shape is a wire contract with the backend — the
// field names sectionId, remakeALL, textToUse and regen are consumed directly
// from the PUT request body and must not change.
//
// A [Ledger] is a plain mutable value and is NOT safe for concurrent use;
// callers that share one across goroutines (the review session manager does)
// must serialise access. All operations are synchronous, total for any
// integer indices, and idempotent when repeated with identical arguments.
package retry

import (
	"maps"
	"slices"
)

// TextRetry is one pending per-line correction within a section.
type TextRetry struct {
	// Index is the zero-based line index within the section.
	Index int `json:"index"`

	// TextToUse is the operator's substitute text, or nil when the entry only
	// flags the line for regeneration.
	TextToUse *string `json:"textToUse"`

	// Regen requests wholesale regeneration of the line's audio.
	Regen bool `json:"regen"`

	// AudioID is the backend clip identifier, when known.
	AudioID *int64 `json:"audioID,omitempty"`
}

// SectionRetry collects the pending work for one section.
type SectionRetry struct {
	// SectionID is the zero-based section index within the request.
	SectionID int `json:"sectionId"`

	// RemakeAll requests regeneration of the entire section. When true the
	// per-line Texts entries are ignored for display (the original script is
	// shown) but they are retained so the flag can be toggled back without
	// losing edits.
	RemakeAll bool `json:"remakeALL"`

	// Texts holds at most one entry per line index.
	Texts []TextRetry `json:"texts"`
}

// Document is the serialisable form of a [Ledger], shaped exactly as the
// backend's reprocess endpoint expects it.
type Document struct {
	Sections []SectionRetry `json:"sections"`
}

// Ledger records pending corrections keyed by section index. The zero value
// is ready to use. Lifecycle: created empty per review session, mutated by
// operator edits, and deliberately NOT cleared on submission success or
// failure — the backend response is not granular enough to reconcile, and
// keeping state lets the operator retry a failed submission without redoing
// edits.
type Ledger struct {
	sections map[int]*SectionRetry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{sections: make(map[int]*SectionRetry)}
}

// section returns the entry for sectionIndex, creating it when create is set.
func (l *Ledger) section(sectionIndex int, create bool) *SectionRetry {
	if l.sections == nil {
		l.sections = make(map[int]*SectionRetry)
	}
	s, ok := l.sections[sectionIndex]
	if !ok && create {
		s = &SectionRetry{SectionID: sectionIndex}
		l.sections[sectionIndex] = s
	}
	return s
}

// entry returns a pointer to the TextRetry for (sectionIndex, lineIndex), or
// nil when absent.
func (l *Ledger) entry(sectionIndex, lineIndex int) *TextRetry {
	s := l.section(sectionIndex, false)
	if s == nil {
		return nil
	}
	for i := range s.Texts {
		if s.Texts[i].Index == lineIndex {
			return &s.Texts[i]
		}
	}
	return nil
}

// Update inserts or overwrites the correction for (sectionIndex, lineIndex)
// with newText and clears its regen flag. Updates overwrite in place; a line
// never accumulates duplicate entries.
//
// When newText equals originalText the call is equivalent to [Ledger.Remove]:
// a no-op correction must not occupy ledger space.
func (l *Ledger) Update(sectionIndex, lineIndex int, newText, originalText string, audioID ...int64) {
	if newText == originalText {
		l.Remove(sectionIndex, lineIndex)
		return
	}

	var id *int64
	if len(audioID) > 0 {
		v := audioID[0]
		id = &v
	}

	if e := l.entry(sectionIndex, lineIndex); e != nil {
		e.TextToUse = &newText
		e.Regen = false
		if id != nil {
			e.AudioID = id
		}
		return
	}

	s := l.section(sectionIndex, true)
	s.Texts = append(s.Texts, TextRetry{
		Index:     lineIndex,
		TextToUse: &newText,
		AudioID:   id,
	})
}

// Remove deletes the correction for (sectionIndex, lineIndex) if present.
// When the section's Texts list empties and RemakeAll is false, the section
// entry itself is pruned.
func (l *Ledger) Remove(sectionIndex, lineIndex int) {
	s := l.section(sectionIndex, false)
	if s == nil {
		return
	}
	for i := range s.Texts {
		if s.Texts[i].Index == lineIndex {
			s.Texts = append(s.Texts[:i], s.Texts[i+1:]...)
			break
		}
	}
	if len(s.Texts) == 0 && !s.RemakeAll {
		delete(l.sections, sectionIndex)
	}
}

// ToggleRegen flips the regen flag for (sectionIndex, lineIndex), creating a
// default entry (no substitute text, regen on) when none exists yet. When the
// flip leaves an entry with no text and regen off, the entry is removed so a
// double toggle is a true no-op.
func (l *Ledger) ToggleRegen(sectionIndex, lineIndex int) {
	if e := l.entry(sectionIndex, lineIndex); e != nil {
		e.Regen = !e.Regen
		if !e.Regen && e.TextToUse == nil {
			l.Remove(sectionIndex, lineIndex)
		}
		return
	}
	s := l.section(sectionIndex, true)
	s.Texts = append(s.Texts, TextRetry{Index: lineIndex, Regen: true})
}

// ToggleRemakeAll flips the whole-section remake flag, creating the section
// entry when absent. Per-line entries are left untouched in both directions.
func (l *Ledger) ToggleRemakeAll(sectionIndex int) {
	s := l.section(sectionIndex, true)
	s.RemakeAll = !s.RemakeAll
	if !s.RemakeAll && len(s.Texts) == 0 {
		delete(l.sections, sectionIndex)
	}
}

// State reports the current flags for (sectionIndex, lineIndex). It is a pure
// lookup returning zero-value defaults (regen off, no text) when no entry
// exists.
func (l *Ledger) State(sectionIndex, lineIndex int) (regen bool, textToUse *string) {
	e := l.entry(sectionIndex, lineIndex)
	if e == nil {
		return false, nil
	}
	return e.Regen, e.TextToUse
}

// RemakeAll reports the whole-section remake flag for sectionIndex.
func (l *Ledger) RemakeAll(sectionIndex int) bool {
	s := l.section(sectionIndex, false)
	return s != nil && s.RemakeAll
}

// Len returns the number of sections currently carrying pending work.
func (l *Ledger) Len() int {
	return len(l.sections)
}

// Document serialises the ledger into the backend wire shape. Sections are
// emitted in ascending section order and lines in ascending line order so the
// output is deterministic for equal ledger state.
func (l *Ledger) Document() Document {
	doc := Document{Sections: []SectionRetry{}}
	for _, i := range slices.Sorted(maps.Keys(l.sections)) {
		s := l.sections[i]
		doc.Sections = append(doc.Sections, SectionRetry{
			SectionID: s.SectionID,
			RemakeAll: s.RemakeAll,
			Texts:     sortedTexts(s.Texts),
		})
	}
	return doc
}

// sortedTexts returns a copy of texts ordered by line index.
func sortedTexts(texts []TextRetry) []TextRetry {
	out := make([]TextRetry, len(texts))
	copy(out, texts)
	slices.SortFunc(out, func(a, b TextRetry) int { return a.Index - b.Index })
	return out
}
