package text

import "strings"

// monosyllables are common words the vowel-group heuristic miscounts.
var monosyllables = map[string]struct{}{
	"the": {}, "me": {}, "he": {}, "she": {}, "be": {}, "see": {},
}

const vowels = "aeiouy"

// Syllables estimates the syllable count of a single English word by counting
// vowel groups, with a silent-e adjustment. The estimate is never below 1 for
// a non-empty word; surrounding punctuation is ignored.
func Syllables(word string) int {
	w := strings.Trim(strings.ToLower(word), ".,;:!?-\"'()[]{}")
	if w == "" {
		return 0
	}
	if _, ok := monosyllables[w]; ok {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	// Silent trailing e ("make", "home") does not add a syllable.
	if strings.HasSuffix(w, "e") && len(w) > 2 && !strings.ContainsRune(vowels, rune(w[len(w)-2])) {
		count--
	}

	if count < 1 {
		return 1
	}
	return count
}
