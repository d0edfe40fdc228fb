// Package quran segments a reference passage into positional word units for
// recitation matching.
//
// A passage is one or more verses presented as a single practice unit. The
// source text may be plain or annotated with inline markup tags (tajweed
// colouring spans); tags are invisible characters that must not shift word
// boundary math, so the segmenter tokenizes a tag-free projection of the text
// and maps every word boundary back onto the original through byte-offset
// index maps. Verse-end signs, pause marks and in-word annotation marks all
// flow through one shared cleaning pass ([arabic.CleanPassageMarksIndexed]),
// so word counts and verse-marker positions can never disagree.
//
// Segmentation is deterministic: the same passage always yields the same
// positions, markup spans and duplicate tags.
package quran

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/msaudi/tasmee/pkg/arabic"
)

// endOfAyah is the Quranic end-of-verse sign (U+06DD). It is followed by the
// ayah number written in digits.
const endOfAyah = '۝'

// ExpectedWord is one canonical unit of the reference passage.
type ExpectedWord struct {
	// PlainText is the human-readable form of the word and the match target.
	PlainText string

	// MarkupText is the slice of the original annotated text covering this
	// word, with any tag left open across the slice boundary closed at the
	// end. Empty when the passage carries no markup.
	MarkupText string

	// Position is the 0-based index of the word in the passage. Stable for
	// the lifetime of a session.
	Position int

	// DuplicateIndex and DuplicateCount disambiguate words whose normalized
	// form recurs in the passage: the n-th occurrence of a form appearing m
	// times carries (n, m), 1-based. Both are zero for unique words. They
	// exist for display and state tracking only; matching is positional.
	DuplicateIndex int
	DuplicateCount int
}

// VerseMarker records a verse-end sign and the word position it follows.
type VerseMarker struct {
	// Label is the marker as written in the source, sign plus ayah digits.
	Label string

	// Ayah is the verse number parsed from the digits, 0 when absent.
	Ayah int

	// AfterWord is the number of passage words preceding the marker.
	AfterWord int
}

// Segmentation is the result of segmenting one passage.
type Segmentation struct {
	Words   []ExpectedWord
	Markers []VerseMarker
}

// Segment splits passageText into positional words and verse markers.
//
// Whitespace-only input yields an empty segmentation. A word whose boundaries
// cannot be mapped back into the annotated source falls back to an unstyled
// plain-text word; segmentation itself never fails.
func Segment(passageText string) Segmentation {
	plain, plainIdx := stripMarkup(passageText)
	hasMarkup := plain != passageText

	noMarkers, markerOffsets, nmIdx := extractVerseMarkers(plain)
	cleaned, cIdx := arabic.CleanPassageMarksIndexed(noMarkers)

	tokens := tokenize(cleaned)

	words := make([]ExpectedWord, 0, len(tokens))
	spanStart := 0
	for i, tok := range tokens {
		w := ExpectedWord{
			PlainText: cleaned[tok.start:tok.end],
			Position:  i,
		}
		if hasMarkup {
			var spanEnd int
			w.MarkupText, spanEnd = markupSpan(passageText, plainIdx, nmIdx, cIdx, tok, spanStart)
			if spanEnd > spanStart {
				spanStart = spanEnd
			}
			if w.MarkupText == "" {
				slog.Warn("quran: word not locatable in annotated source, using plain text",
					"position", i, "word", w.PlainText)
			}
		}
		words = append(words, w)
	}

	assignDuplicates(words)

	markers := make([]VerseMarker, 0, len(markerOffsets))
	for _, m := range markerOffsets {
		after := 0
		for _, tok := range tokens {
			if plainOffset(nmIdx, cIdx, tok.start) < m.offset {
				after++
			}
		}
		markers = append(markers, VerseMarker{Label: m.label, Ayah: m.ayah, AfterWord: after})
	}

	return Segmentation{Words: words, Markers: markers}
}

// token is a half-open byte range of one word in the cleaned text.
type token struct {
	start, end int
}

// tokenize splits s on whitespace, discarding empty runs.
func tokenize(s string) []token {
	var tokens []token
	start := -1
	for off, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start, off})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = off
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start, len(s)})
	}
	return tokens
}

// assignDuplicates fills DuplicateIndex/DuplicateCount for words whose
// normalized form occurs more than once.
func assignDuplicates(words []ExpectedWord) {
	byForm := make(map[string][]int, len(words))
	for i, w := range words {
		form := arabic.Normalize(w.PlainText, arabic.DefaultOptions())
		byForm[form] = append(byForm[form], i)
	}
	for _, positions := range byForm {
		if len(positions) < 2 {
			continue
		}
		for n, i := range positions {
			words[i].DuplicateIndex = n + 1
			words[i].DuplicateCount = len(positions)
		}
	}
}

// markerOffset pairs a verse marker with its byte offset in the tag-free text.
type markerOffset struct {
	label  string
	ayah   int
	offset int
}

// extractVerseMarkers replaces each end-of-ayah sign (and its trailing ayah
// digits) with a single space, recording the marker text and its offset.
// The returned index maps output byte offsets to input byte offsets.
func extractVerseMarkers(plain string) (string, []markerOffset, []int) {
	var b strings.Builder
	b.Grow(len(plain))
	index := make([]int, 0, len(plain))
	var markers []markerOffset

	runes := []rune(plain)
	off := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		srcOff := off
		off += utf8.RuneLen(r)

		if r != endOfAyah {
			n := b.Len()
			b.WriteRune(r)
			for j := n; j < b.Len(); j++ {
				index = append(index, srcOff)
			}
			continue
		}

		label := string(r)
		ayah := 0
		for i+1 < len(runes) {
			d, ok := digitValue(runes[i+1])
			if !ok {
				break
			}
			ayah = ayah*10 + d
			label += string(runes[i+1])
			i++
			off += utf8.RuneLen(runes[i])
		}
		markers = append(markers, markerOffset{label: label, ayah: ayah, offset: srcOff})
		b.WriteByte(' ')
		index = append(index, srcOff)
	}

	return b.String(), markers, index
}

// digitValue returns the numeric value of ASCII, Arabic-Indic and extended
// Arabic-Indic digits.
func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 0x0660 && r <= 0x0669:
		return int(r - 0x0660), true
	case r >= 0x06F0 && r <= 0x06F9:
		return int(r - 0x06F0), true
	}
	return 0, false
}

// plainOffset maps a byte offset in the cleaned text back to the tag-free
// plain text through the marker and cleaning index maps. Returns -1 when the
// offset cannot be mapped.
func plainOffset(nmIdx, cIdx []int, off int) int {
	if off < 0 || off >= len(cIdx) {
		return -1
	}
	nm := cIdx[off]
	if nm < 0 || nm >= len(nmIdx) {
		return -1
	}
	return nmIdx[nm]
}

// markupSpan slices the original annotated text to cover tok. The span runs
// from spanStart (the end of the previous word's span) through the word's
// final rune, so opening tags preceding the word are retained. Returns the
// balanced span and the raw offset where the next span should start; the span
// is "" when the mapping fails.
func markupSpan(raw string, plainIdx, nmIdx, cIdx []int, tok token, spanStart int) (string, int) {
	startPlain := plainOffset(nmIdx, cIdx, tok.start)
	endPlain := plainOffset(nmIdx, cIdx, tok.end-1)
	if startPlain < 0 || endPlain < 0 {
		return "", spanStart
	}
	if startPlain >= len(plainIdx) || endPlain >= len(plainIdx) {
		return "", spanStart
	}

	rawLast := plainIdx[endPlain]
	if rawLast < spanStart || rawLast >= len(raw) {
		return "", spanStart
	}

	// Extend past the final rune of the word.
	_, size := utf8.DecodeRuneInString(raw[rawLast:])
	rawEnd := rawLast + size

	// Leading whitespace, verse signs and ayah digits belong to the gap
	// between words, not to this word's span.
	span := strings.TrimLeftFunc(raw[spanStart:rawEnd], func(r rune) bool {
		if unicode.IsSpace(r) || r == endOfAyah {
			return true
		}
		_, isDigit := digitValue(r)
		return isDigit
	})
	return strings.TrimSpace(balanceTags(span)), rawEnd
}

// balanceTags rewrites s so its markup tags pair up: closing tags with no
// opener inside s are dropped, and tags still open at the end of s are closed
// in reverse order of opening.
func balanceTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	var open []string

	i := 0
	for i < len(s) {
		lt := strings.IndexByte(s[i:], '<')
		if lt < 0 {
			b.WriteString(s[i:])
			break
		}
		lt += i
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[i:])
			break
		}
		gt += lt

		b.WriteString(s[i:lt])
		tag := s[lt+1 : gt]
		full := s[lt : gt+1]
		i = gt + 1

		switch {
		case strings.HasPrefix(tag, "/"):
			name := strings.TrimPrefix(tag, "/")
			matched := false
			for j := len(open) - 1; j >= 0; j-- {
				if open[j] == name {
					open = append(open[:j], open[j+1:]...)
					matched = true
					break
				}
			}
			if matched {
				b.WriteString(full)
			}
			// A closer with no opener in this span is dropped.
		case strings.HasSuffix(tag, "/"):
			b.WriteString(full)
		default:
			name := tag
			if sp := strings.IndexAny(name, " \t"); sp >= 0 {
				name = name[:sp]
			}
			open = append(open, name)
			b.WriteString(full)
		}
	}

	for j := len(open) - 1; j >= 0; j-- {
		b.WriteString("</")
		b.WriteString(open[j])
		b.WriteByte('>')
	}
	return b.String()
}

// stripMarkup removes <...> tags from raw, returning the tag-free text and a
// per-byte index mapping output offsets to input offsets. When raw contains
// no tags the text is returned unchanged with an identity index.
func stripMarkup(raw string) (string, []int) {
	if !strings.ContainsRune(raw, '<') {
		index := make([]int, len(raw))
		for i := range index {
			index[i] = i
		}
		return raw, index
	}

	var b strings.Builder
	b.Grow(len(raw))
	index := make([]int, 0, len(raw))

	inTag := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inTag:
			if c == '>' {
				inTag = false
			}
		case c == '<':
			inTag = true
		default:
			b.WriteByte(c)
			index = append(index, i)
		}
	}

	return b.String(), index
}
