package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
)

// Language is a supported translation language.
type Language struct {
	// Code is the ISO 639-1 code used by the HTTP API.
	Code string
	// NLLB is the FLORES-200 code expected by NLLB translation models.
	NLLB string
	// Name is the English name used in prompts.
	Name string
}

var languages = map[string]Language{
	"ar": {"ar", "arb_Arab", "Arabic"},
	"bg": {"bg", "bul_Cyrl", "Bulgarian"},
	"ca": {"ca", "cat_Latn", "Catalan"},
	"cs": {"cs", "ces_Latn", "Czech"},
	"da": {"da", "dan_Latn", "Danish"},
	"de": {"de", "deu_Latn", "German"},
	"el": {"el", "ell_Grek", "Greek"},
	"en": {"en", "eng_Latn", "English"},
	"es": {"es", "spa_Latn", "Spanish"},
	"et": {"et", "est_Latn", "Estonian"},
	"fa": {"fa", "pes_Arab", "Persian"},
	"fi": {"fi", "fin_Latn", "Finnish"},
	"fr": {"fr", "fra_Latn", "French"},
	"he": {"he", "heb_Hebr", "Hebrew"},
	"hi": {"hi", "hin_Deva", "Hindi"},
	"hr": {"hr", "hrv_Latn", "Croatian"},
	"hu": {"hu", "hun_Latn", "Hungarian"},
	"id": {"id", "ind_Latn", "Indonesian"},
	"it": {"it", "ita_Latn", "Italian"},
	"ja": {"ja", "jpn_Jpan", "Japanese"},
	"ko": {"ko", "kor_Hang", "Korean"},
	"lt": {"lt", "lit_Latn", "Lithuanian"},
	"lv": {"lv", "lvs_Latn", "Latvian"},
	"nb": {"nb", "nob_Latn", "Norwegian Bokmål"},
	"nl": {"nl", "nld_Latn", "Dutch"},
	"nn": {"nn", "nno_Latn", "Norwegian Nynorsk"},
	"pl": {"pl", "pol_Latn", "Polish"},
	"pt": {"pt", "por_Latn", "Portuguese"},
	"ro": {"ro", "ron_Latn", "Romanian"},
	"ru": {"ru", "rus_Cyrl", "Russian"},
	"sk": {"sk", "slk_Latn", "Slovak"},
	"sl": {"sl", "slv_Latn", "Slovenian"},
	"sr": {"sr", "srp_Cyrl", "Serbian"},
	"sv": {"sv", "swe_Latn", "Swedish"},
	"th": {"th", "tha_Thai", "Thai"},
	"tr": {"tr", "tur_Latn", "Turkish"},
	"uk": {"uk", "ukr_Cyrl", "Ukrainian"},
	"vi": {"vi", "vie_Latn", "Vietnamese"},
	"zh": {"zh", "zho_Hans", "Chinese"},
}

// LookupLanguage resolves an ISO 639-1 code, case-insensitively.
func LookupLanguage(code string) (Language, error) {
	l, ok := languages[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Language{}, fmt.Errorf("%w: unknown language %q", apperr.ErrUnsupportedLanguagePair, code)
	}
	return l, nil
}

// LanguageCodes returns the supported codes in sorted order.
func LanguageCodes() []string {
	codes := make([]string, 0, len(languages))
	for c := range languages {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
