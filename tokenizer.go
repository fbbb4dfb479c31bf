package lfas

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// minWeakTokenLength is the shortest base token that yields character
// n-grams; shorter tokens are kept only as themselves.
const minWeakTokenLength = 3

// ngramSize is the fixed length of the sliding-window character n-grams
// emitted as weak tokens.
const ngramSize = 3

// brazilianStates is the closed set of valid Brazilian state codes. A
// two-letter base token is distinctive only if it is a member of this
// set, not merely any two-letter string.
var brazilianStates = map[string]struct{}{
	"ac": {}, "al": {}, "ap": {}, "am": {}, "ba": {}, "ce": {}, "df": {},
	"es": {}, "go": {}, "ma": {}, "mt": {}, "ms": {}, "mg": {}, "pa": {},
	"pb": {}, "pr": {}, "pe": {}, "pi": {}, "rj": {}, "rn": {}, "rs": {},
	"ro": {}, "rr": {}, "sc": {}, "sp": {}, "se": {}, "to": {},
}

// addressTypeWords is the closed set of Portuguese address-type words
// and highway prefixes used to form distinctive adjacent bigrams. Carried
// over from the corpus this engine's domain was distilled from.
var addressTypeWords = map[string]struct{}{
	"rua": {}, "avenida": {}, "av": {}, "travessa": {}, "alameda": {},
	"praca": {}, "rodovia": {}, "estrada": {}, "viela": {}, "largo": {},
	"vila": {}, "quadra": {}, "lote": {}, "bloco": {}, "conjunto": {},
	"residencial": {}, "condominio": {}, "setor": {}, "chacara": {},
	"fazenda": {}, "sitio": {}, "loteamento": {}, "distrito": {},
	"povoado": {}, "km": {}, "br": {},
}

// stopwords is dropped from base tokens before distinctive/weak token
// extraction: common Portuguese connector words that occur in nearly
// every address and would otherwise dilute every posting list and
// n-gram stream without helping match anything.
var stopwords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "em": {},
	"na": {}, "no": {}, "nas": {}, "nos": {}, "as": {}, "os": {},
	"um": {}, "uma": {}, "uns": {}, "umas": {}, "pelo": {}, "pela": {},
	"por": {}, "para": {}, "com": {}, "sem": {}, "sobre": {}, "entre": {},
	"ate": {}, "desde": {},
}

var (
	postalCodeRe  = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	houseNumberRe = regexp.MustCompile(`^\d{1,6}$`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]+`)

	// hyphenatedPostalRe matches a five-digit/hyphen/three-digit postal
	// code inside free text.
	hyphenatedPostalRe = regexp.MustCompile(`\b(\d{5})-(\d{3})\b`)
)

// Tokens holds the result of tokenizing one field's text: the distinctive
// tokens (a subset used for Round 1 candidate selection) and the full set
// used for Round 2 scoring, along with occurrence counts for the full
// set.
type Tokens struct {
	Distinctive []string
	All         []string
	TF          map[string]int
}

// normalize runs the NFD-decompose / strip-marks / lowercase / collapse
// pipeline specified for this engine's tokenizer. The hyphen of a
// hyphenated postal code is removed before non-alphanumerics become
// spaces, so the code stays one base token that Tokenize rewrites to
// its hyphenated canonical form.
func normalize(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	joined := hyphenatedPostalRe.ReplaceAllString(b.String(), "$1$2")
	collapsed := nonAlnumRe.ReplaceAllString(joined, " ")
	return strings.TrimSpace(collapsed)
}

// normalizePostalCode rewrites an 8-digit postal code to its hyphenated
// canonical form; codes already hyphenated pass through unchanged.
func normalizePostalCode(tok string) string {
	if len(tok) == 8 && !strings.Contains(tok, "-") {
		return tok[:5] + "-" + tok[5:]
	}
	return tok
}

// isDistinctive reports whether a single base token matches one of the
// shape rules that make it selective: postal code, house number, or
// Brazilian state abbreviation.
func isDistinctive(tok string) bool {
	if postalCodeRe.MatchString(tok) {
		return true
	}
	if houseNumberRe.MatchString(tok) {
		return true
	}
	if _, ok := brazilianStates[tok]; ok && len(tok) == 2 {
		return true
	}
	return false
}

// Tokenize runs the full tokenization pipeline for one field's text,
// producing the distinctive and weak token sets plus term frequencies
// over the full set.
func Tokenize(_ FieldTag, text string) Tokens {
	normalized := normalize(text)
	if normalized == "" {
		return Tokens{TF: map[string]int{}}
	}

	rawBases := strings.Split(normalized, " ")
	bases := make([]string, 0, len(rawBases))
	for _, tok := range rawBases {
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		bases = append(bases, tok)
	}

	distinctSet := make(map[string]struct{})
	allSet := make(map[string]struct{})
	tf := make(map[string]int)

	addAll := func(tok string) {
		if tok == "" {
			return
		}
		allSet[tok] = struct{}{}
		tf[tok]++
	}

	// "pará" (the state name) normalizes, once combining marks are
	// stripped, to "para" — the same string as the preposition
	// stopword, so bases above has already dropped it. Check the raw,
	// pre-normalization text for the accented spelling and restore the
	// token independent of the stopword filter, matching
	// original_source's post-filter re-insertion.
	if strings.Contains(strings.ToLower(text), "pará") {
		addAll("para")
	}

	for i, base := range bases {
		shaped := base
		if postalCodeRe.MatchString(shaped) {
			shaped = normalizePostalCode(shaped)
		}

		addAll(shaped)

		if isDistinctive(shaped) {
			distinctSet[shaped] = struct{}{}
		}

		if len(shaped) >= minWeakTokenLength {
			for _, gram := range slidingTrigrams(shaped) {
				addAll(gram)
			}
		}

		// Only look forward from an address-type word: looking backward
		// from the following distinctive token would recompute the same
		// (addr-type, distinctive) bigram for the same adjacent pair.
		if _, isAddrType := addressTypeWords[base]; isAddrType && i+1 < len(bases) {
			next := bases[i+1]
			if shapedNext := normalizePostalCode(next); isDistinctive(shapedNext) {
				bigram := base + " " + shapedNext
				addAll(bigram)
				distinctSet[bigram] = struct{}{}
			}
		}
	}

	return Tokens{
		Distinctive: setToSlice(distinctSet),
		All:         setToSlice(allSet),
		TF:          tf,
	}
}

// slidingTrigrams returns every overlapping 3-character substring of
// tok, per the sliding-window weak-token rule.
func slidingTrigrams(tok string) []string {
	runes := []rune(tok)
	if len(runes) < ngramSize {
		return nil
	}
	grams := make([]string, 0, len(runes)-ngramSize+1)
	for i := 0; i+ngramSize <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+ngramSize]))
	}
	return grams
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	return out
}
