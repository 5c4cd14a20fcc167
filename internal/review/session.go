// Package review holds the server-side state of an operator reviewing one
// audio request: the loaded script sections, the pending corrections ledger,
// and the set of lines the operator has confirmed by hand.
//
// A [Session] serializes all access with a mutex; concurrent operators on the
// same session get last-writer-wins semantics. The [Manager] owns session
// lifecycle: opening against the generation backend, lookup, idle expiry.
package review

import (
	"strings"
	"sync"
	"time"

	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
	"github.com/hipnotiq/revisor/pkg/textdiff"
)

// Session is one operator's in-progress review of an audio request.
// All exported methods are safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	id         string
	requestID  string
	title      string
	status     string
	sections   []script.Section
	ledger     *retry.Ledger
	manual     retry.ManualSet
	createdAt  time.Time
	lastAccess time.Time
}

// LineDiff is the full comparison of one script line against its
// transcription, plus the ledger state the dashboard renders next to it.
type LineDiff struct {
	AudioNumber  int            `json:"audioNumber"`
	SectionIndex int            `json:"sectionIndex"`
	LineIndex    int            `json:"lineIndex"`
	OriginalText string         `json:"originalText"`
	// Transcription is empty when the audio for this line has not been
	// generated or transcribed yet.
	Transcription      string          `json:"transcription"`
	HasAudio           bool            `json:"hasAudio"`
	OriginalSpans      []textdiff.Span `json:"originalSpans"`
	TranscriptionSpans []textdiff.Span `json:"transcriptionSpans"`
	Similarity         float64         `json:"similarity"`
	Regen              bool            `json:"regen"`
	PendingText        *string         `json:"pendingText"`
	RemakeAll          bool            `json:"remakeAll"`
	Confirmed          bool            `json:"confirmed"`
}

// Snapshot is the session state the dashboard loads on open and refresh.
type Snapshot struct {
	SessionID       string           `json:"sessionId"`
	RequestID       string           `json:"requestId"`
	Title           string           `json:"title"`
	Status          string           `json:"status"`
	Sections        []script.Section `json:"sections"`
	Ledger          retry.Document   `json:"ledger"`
	ConfirmedAudios []int            `json:"confirmedAudios"`
	TotalAudios     int              `json:"totalAudios"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func newSession(id, requestID, title, status string, sections []script.Section, now time.Time) *Session {
	return &Session{
		id:         id,
		requestID:  requestID,
		title:      title,
		status:     status,
		sections:   sections,
		ledger:     retry.NewLedger(),
		manual:     make(retry.ManualSet),
		createdAt:  now,
		lastAccess: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RequestID returns the audio request this session reviews.
func (s *Session) RequestID() string { return s.requestID }

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	return Snapshot{
		SessionID:       s.id,
		RequestID:       s.requestID,
		Title:           s.title,
		Status:          s.status,
		Sections:        s.sections,
		Ledger:          s.ledger.Document(),
		ConfirmedAudios: s.manual.Numbers(),
		TotalAudios:     script.TotalAudioCount(s.sections),
		CreatedAt:       s.createdAt,
	}
}

// Diff recomputes the alignment for the given absolute audio number.
// ok is false when the number does not resolve to a script line.
func (s *Session) Diff(audioNumber int) (LineDiff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	si, li, ok := script.ResolveAudioNumber(s.sections, audioNumber)
	if !ok {
		return LineDiff{}, false
	}

	original := s.sections[si].Texts[li]
	audio, hasAudio := script.AudioAt(s.sections, audioNumber)

	d := LineDiff{
		AudioNumber:  audioNumber,
		SectionIndex: si,
		LineIndex:    li,
		OriginalText: original,
		HasAudio:     hasAudio,
		RemakeAll:    s.ledger.RemakeAll(si),
		Confirmed:    s.manual.Contains(audioNumber),
	}
	d.Regen, d.PendingText = s.ledger.State(si, li)

	// An audio whose transcription has not arrived yet (still processing, or
	// a blank result) has nothing meaningful to align; diffing against the
	// empty string would flag every word. Present it like a missing audio.
	if hasAudio && audio.Completed && strings.TrimSpace(audio.Transcription) != "" {
		d.Transcription = audio.Transcription
		a := textdiff.AlignText(original, audio.Transcription)
		d.OriginalSpans = textdiff.Spans(a.Original)
		d.TranscriptionSpans = textdiff.Spans(a.Transcription)
		d.Similarity = textdiff.Similarity(a)
	} else {
		d.OriginalSpans = []textdiff.Span{}
		d.TranscriptionSpans = []textdiff.Span{}
	}

	return d, true
}

// Correct records a corrected text for the given audio number. Submitting the
// line's original text removes any pending correction instead of storing a
// no-op. ok is false when the number does not resolve.
func (s *Session) Correct(audioNumber int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	si, li, ok := script.ResolveAudioNumber(s.sections, audioNumber)
	if !ok {
		return false
	}

	original := s.sections[si].Texts[li]
	if audio, hasAudio := script.AudioAt(s.sections, audioNumber); hasAudio {
		s.ledger.Update(si, li, text, original, audio.AudioID)
	} else {
		s.ledger.Update(si, li, text, original)
	}
	return true
}

// ClearCorrection removes any pending correction or regen flag for the given
// audio number. Clearing an absent entry is a no-op; ok is false only when
// the number does not resolve.
func (s *Session) ClearCorrection(audioNumber int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	si, li, ok := script.ResolveAudioNumber(s.sections, audioNumber)
	if !ok {
		return false
	}
	s.ledger.Remove(si, li)
	return true
}

// ToggleRegen flips the regenerate-as-is flag for the given audio number and
// returns the new flag state.
func (s *Session) ToggleRegen(audioNumber int) (regen bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	si, li, ok := script.ResolveAudioNumber(s.sections, audioNumber)
	if !ok {
		return false, false
	}
	s.ledger.ToggleRegen(si, li)
	regen, _ = s.ledger.State(si, li)
	return regen, true
}

// ToggleRemakeAll flips the whole-section remake flag for the given section
// index and returns the new flag state.
func (s *Session) ToggleRemakeAll(sectionIndex int) (on bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	if sectionIndex < 0 || sectionIndex >= len(s.sections) {
		return false, false
	}
	s.ledger.ToggleRemakeAll(sectionIndex)
	return s.ledger.RemakeAll(sectionIndex), true
}

// ToggleConfirm flips the manually-corrected mark for the given audio number
// and returns the new mark state. The mark is display bookkeeping only and
// never enters the submitted document.
func (s *Session) ToggleConfirm(audioNumber int) (confirmed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	if _, _, ok := script.ResolveAudioNumber(s.sections, audioNumber); !ok {
		return false, false
	}
	s.manual.Toggle(audioNumber)
	return s.manual.Contains(audioNumber), true
}

// Line returns the original text and transcription for the given audio
// number, for use by the suggestion pipeline.
func (s *Session) Line(audioNumber int) (original, transcription string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()

	si, li, ok := script.ResolveAudioNumber(s.sections, audioNumber)
	if !ok {
		return "", "", false
	}
	original = s.sections[si].Texts[li]
	if audio, hasAudio := script.AudioAt(s.sections, audioNumber); hasAudio {
		transcription = audio.Transcription
	}
	return original, transcription, true
}

// Document serializes the session's ledger into the backend wire document.
// The ledger itself is left untouched.
func (s *Session) Document() retry.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
	return s.ledger.Document()
}

// PendingCount returns the number of ledger entries.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}
