// Package arabic provides canonical normalization of Arabic text for
// recitation matching.
//
// Quranic (Uthmani) orthography and the plain orthography produced by speech
// recognizers spell the same words differently: tashkeel, superscript alef,
// kashida, hamza carriers and final-yeh forms all vary between the two. The
// normalizer folds both conventions onto one comparable form so that a spoken
// token and its reference word compare equal when they are the same word.
//
// All functions are pure and deterministic.
package arabic

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Rune constants for the characters the normalizer rewrites. Named here so
// the fold table below reads as orthography rules rather than magic numbers.
const (
	alef           = 'ا' // ا
	alefMadda      = 'آ' // آ
	alefHamzaAbove = 'أ' // أ
	alefHamzaBelow = 'إ' // إ
	alefWasla      = 'ٱ' // ٱ
	daggerAlef     = 'ٰ' // superscript alef, pronounced as a full alef
	yeh            = 'ي' // ي
	alefMaksura    = 'ى' // ى
	yehHamza       = 'ئ' // ئ
	tehMarbuta     = 'ة' // ة
	heh            = 'ه' // ه
	kashida        = 'ـ' // ـ tatweel, purely typographic
)

// Options controls which normalization folds are applied.
// The zero value disables everything; use [DefaultOptions] for the standard
// matching configuration.
type Options struct {
	// RemoveDiacritics strips tashkeel (fathatan through sukun and the
	// Quranic annotation marks) after decomposition.
	RemoveDiacritics bool

	// FoldAlef maps every hamza-bearing and long-vowel alef form to the bare
	// alef.
	FoldAlef bool

	// FoldYeh maps alef-maksura and hamza-on-yeh to the bare yeh.
	FoldYeh bool

	// FoldTehMarbuta maps teh-marbuta to heh, matching its pausal
	// pronunciation.
	FoldTehMarbuta bool

	// ElideDaggerAlef deletes the superscript alef instead of expanding it to
	// a full alef. Used by the matcher to accept recognizers that drop the
	// elongation entirely.
	ElideDaggerAlef bool
}

// DefaultOptions returns the configuration used for recitation matching:
// all folds enabled, dagger alef expanded to a full alef.
func DefaultOptions() Options {
	return Options{
		RemoveDiacritics: true,
		FoldAlef:         true,
		FoldYeh:          true,
		FoldTehMarbuta:   true,
	}
}

// Normalize canonicalizes text for comparison.
//
// The text is decomposed (NFD), rewritten rune by rune according to opts,
// recomposed (NFC), trimmed, and lowercased. Zero-width and directional
// control characters are always removed, as is any character outside the
// Arabic Unicode ranges other than whitespace. Lowercasing is a no-op for
// Arabic but keeps behaviour uniform for embedded Latin content.
func Normalize(text string, opts Options) string {
	if text == "" {
		return ""
	}

	decomposed := norm.NFD.String(text)

	var b strings.Builder
	b.Grow(len(decomposed))

	for _, r := range decomposed {
		switch {
		case isZeroWidth(r):
			continue

		case r == daggerAlef:
			if !opts.ElideDaggerAlef {
				b.WriteRune(alef)
			}
			continue

		case r == kashida:
			continue

		case (opts.FoldAlef || opts.FoldYeh) && (r == 0x0653 || r == 0x0654 || r == 0x0655):
			// NFD splits madda and hamza carriers into base letter plus
			// combining mark; dropping the mark completes the fold even when
			// diacritic removal is disabled.
			continue

		case opts.RemoveDiacritics && isTashkeel(r):
			continue

		case opts.FoldAlef && (r == alefMadda || r == alefHamzaAbove || r == alefHamzaBelow || r == alefWasla):
			b.WriteRune(alef)
			continue

		case opts.FoldYeh && (r == alefMaksura || r == yehHamza):
			b.WriteRune(yeh)
			continue

		case opts.FoldTehMarbuta && r == tehMarbuta:
			b.WriteRune(heh)
			continue

		case unicode.IsSpace(r) || isArabic(r):
			b.WriteRune(r)

		default:
			// Anything outside the Arabic ranges is noise for matching.
			continue
		}
	}

	out := norm.NFC.String(b.String())
	return strings.ToLower(strings.TrimSpace(out))
}

// HasDaggerAlef reports whether s contains the superscript alef. The matcher
// uses this to decide when the elided-alef comparison form applies.
func HasDaggerAlef(s string) bool {
	return strings.ContainsRune(s, daggerAlef)
}

// isTashkeel reports whether r is an Arabic diacritical or annotation mark
// that carries no letter identity: the harakat block (U+064B–U+065F) and the
// small Quranic marks (U+06D6–U+06ED, excluding the end-of-ayah sign).
func isTashkeel(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F:
		return true
	case r >= 0x06D6 && r <= 0x06DC:
		return true
	case r >= 0x06DF && r <= 0x06E8 && r != 0x06E5 && r != 0x06E6:
		// Small waw (U+06E5) and small yeh (U+06E6) are letters, not marks.
		return true
	case r >= 0x06EA && r <= 0x06ED:
		return true
	case r >= 0x08D3 && r <= 0x08FF:
		return true
	}
	return false
}

// isZeroWidth reports whether r is a zero-width or directional control
// character that must never influence comparison.
func isZeroWidth(r rune) bool {
	switch r {
	case 0x200B, 0x200C, 0x200D, 0x200E, 0x200F, // ZWSP, ZWNJ, ZWJ, LRM, RLM
		0x202A, 0x202B, 0x202C, 0x202D, 0x202E, // embedding and override controls
		0x2060, 0xFEFF, 0x061C: // word joiner, BOM, Arabic letter mark
		return true
	}
	return false
}

// isArabic reports whether r falls in one of the Arabic Unicode blocks,
// including the presentation forms used by some text sources.
func isArabic(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x0750 && r <= 0x077F:
		return true
	case r >= 0x08A0 && r <= 0x08FF:
		return true
	case r >= 0xFB50 && r <= 0xFDFF:
		return true
	case r >= 0xFE70 && r <= 0xFEFF:
		return true
	}
	return false
}
