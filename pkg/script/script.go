// Package script defines the generated-script data model shared across the
// Revisor service: sections, per-line audio records, and the absolute audio
// numbering scheme operators use to refer to individual lines.
//
// Lines are numbered 1-based and contiguously across sections in
// section-index order ("Audio N°7"), with no gaps and no reuse. The numbering
// functions here are total: out-of-range numbers and empty inputs resolve to
// a soft "not found" result rather than an error, because operators routinely
// reference numbers that stop existing after a reprocess shrinks the script.
package script

// Audio is the synthesis record for a single script line.
type Audio struct {
	// AudioID is the backend's identifier for the synthesized clip.
	AudioID int64 `json:"audioID"`

	// Completed reports whether synthesis has finished for this line.
	Completed bool `json:"completed"`

	// Transcription is the backend's speech-to-text readback of the clip,
	// empty until transcription completes.
	Transcription string `json:"transcription,omitempty"`
}

// Section is a group of consecutive script lines sharing timing and effect
// settings. Texts is the immutable source-of-truth script as produced by the
// generation backend; Audios parallels Texts one-to-one.
type Section struct {
	SectionID int      `json:"sectionID"`
	Texts     []string `json:"texts"`
	Audios    []Audio  `json:"audios"`
}

// TotalAudioCount returns the number of script lines across all sections.
func TotalAudioCount(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += len(s.Texts)
	}
	return total
}

// ResolveAudioNumber maps a 1-based absolute audio number to its
// (sectionIndex, lineIndex) pair. ok is false when audioNumber is out of
// range or sections is empty; callers treat that as "no mapping", never as a
// fatal condition.
func ResolveAudioNumber(sections []Section, audioNumber int) (sectionIndex, lineIndex int, ok bool) {
	if audioNumber < 1 {
		return 0, 0, false
	}
	offset := 1
	for i, s := range sections {
		if audioNumber < offset+len(s.Texts) {
			return i, audioNumber - offset, true
		}
		offset += len(s.Texts)
	}
	return 0, 0, false
}

// AudioNumber is the inverse of [ResolveAudioNumber]: it returns the 1-based
// absolute number for the line at (sectionIndex, lineIndex). ok is false when
// either index is out of range.
func AudioNumber(sections []Section, sectionIndex, lineIndex int) (int, bool) {
	if sectionIndex < 0 || sectionIndex >= len(sections) || lineIndex < 0 {
		return 0, false
	}
	if lineIndex >= len(sections[sectionIndex].Texts) {
		return 0, false
	}
	n := 1 + lineIndex
	for i := 0; i < sectionIndex; i++ {
		n += len(sections[i].Texts)
	}
	return n, true
}

// LineAt returns the original script text for the given absolute audio
// number. ok is false when the number does not resolve.
func LineAt(sections []Section, audioNumber int) (string, bool) {
	si, li, ok := ResolveAudioNumber(sections, audioNumber)
	if !ok {
		return "", false
	}
	return sections[si].Texts[li], true
}

// AudioAt returns the synthesis record for the given absolute audio number.
// ok is false when the number does not resolve or when the section's Audios
// slice is shorter than its Texts (transcription still in flight).
func AudioAt(sections []Section, audioNumber int) (Audio, bool) {
	si, li, ok := ResolveAudioNumber(sections, audioNumber)
	if !ok || li >= len(sections[si].Audios) {
		return Audio{}, false
	}
	return sections[si].Audios[li], true
}
