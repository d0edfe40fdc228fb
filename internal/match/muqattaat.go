package match

import (
	"strings"

	"github.com/msaudi/tasmee/pkg/arabic"
)

// The muqatta'at ("mysterious letters") open 29 surahs and are recited as
// spelled-out letter names, not as words: a reciter says "alif lam mim" for
// الم. Recognizers therefore transcribe them as the letter-name sequence,
// which looks nothing like the written token. The table below maps each
// token to the pronunciations accepted for it.
var letterNameSpellings = map[string][]string{
	"الم":    {"الف لام ميم"},
	"المص":   {"الف لام ميم صاد"},
	"الر":    {"الف لام را", "الف لام راء"},
	"المر":   {"الف لام ميم را", "الف لام ميم راء"},
	"كهيعص":  {"كاف ها يا عين صاد", "كاف هاء ياء عين صاد"},
	"طه":     {"طا ها", "طاها"},
	"طسم":    {"طا سين ميم"},
	"طس":     {"طا سين"},
	"يس":     {"يا سين", "ياسين"},
	"ص":      {"صاد"},
	"حم":     {"حا ميم", "حاميم"},
	"عسق":    {"عين سين قاف"},
	"ق":      {"قاف"},
	"ن":      {"نون"},
}

// letterNames is letterNameSpellings with keys and values normalized, built
// once at package init so lookups compare like with like.
var letterNames = buildLetterNames()

func buildLetterNames() map[string][]string {
	opts := arabic.DefaultOptions()
	m := make(map[string][]string, len(letterNameSpellings))
	for token, spellings := range letterNameSpellings {
		key := arabic.Normalize(token, opts)
		names := make([]string, 0, len(spellings)*2)
		for _, s := range spellings {
			n := arabic.Normalize(s, opts)
			names = append(names, n)
			// Recognizers join letter names unpredictably; accept the
			// space-free form as well.
			if joined := strings.ReplaceAll(n, " ", ""); joined != n {
				names = append(names, joined)
			}
		}
		m[key] = names
	}
	return m
}

// letterNameMatch reports whether normSpoken is an accepted letter-name
// pronunciation of the muqatta'at token normExpected. Both arguments must
// already be normalized.
func letterNameMatch(normSpoken, normExpected string) bool {
	names, ok := letterNames[normExpected]
	if !ok || normSpoken == "" {
		return false
	}
	for _, name := range names {
		if normSpoken == name {
			return true
		}
	}
	return false
}
