package arabic

import "strings"

// Quranic annotation marks come in two behavioural classes. Marks that sit
// inside a word (small letters, rounded zeros, low seen) are deleted with no
// separator so the surrounding letters rejoin. Marks that function as pause
// or section signs between words are replaced with a space so they act as a
// word boundary. Word counts anywhere in the system must come through this
// one classification; a second regex pass with slightly different rules would
// silently shift verse-marker positions.

// isPauseMark reports whether r is a mark that separates words: the small
// waqf letters, the Arabic full stop, the end-of-ayah sign, rub el hizb and
// the sajdah sign.
func isPauseMark(r rune) bool {
	switch {
	case r >= 0x06D6 && r <= 0x06DC:
		return true
	case r == 0x06D4, r == 0x06DD, r == 0x06DE, r == 0x06E9:
		return true
	}
	return false
}

// isInWordMark reports whether r is an annotation mark that occurs inside a
// word and must be deleted without introducing a boundary.
func isInWordMark(r rune) bool {
	switch {
	case r >= 0x06DF && r <= 0x06E8:
		return true
	case r >= 0x06EA && r <= 0x06ED:
		return true
	}
	return false
}

// CleanPassageMarks removes Quranic annotation marks from text: in-word marks
// are deleted, pause and section marks become a single space. The result is
// suitable for whitespace word splitting.
func CleanPassageMarks(text string) string {
	cleaned, _ := CleanPassageMarksIndexed(text)
	return cleaned
}

// CleanPassageMarksIndexed is [CleanPassageMarks] plus an offset index:
// index[i] is the byte offset in text of the rune that produced byte i of the
// cleaned string. The segmenter uses the index to map word boundaries found
// in cleaned text back onto the original (possibly marked-up) text.
func CleanPassageMarksIndexed(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	index := make([]int, 0, len(text))

	write := func(r rune, srcOff int) {
		n := b.Len()
		b.WriteRune(r)
		for i := n; i < b.Len(); i++ {
			index = append(index, srcOff)
		}
	}

	for off, r := range text {
		switch {
		case isInWordMark(r):
			continue
		case isPauseMark(r):
			write(' ', off)
		default:
			write(r, off)
		}
	}

	return b.String(), index
}
