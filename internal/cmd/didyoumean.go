package cmd

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// maxSuggestDistance is the largest edit distance still offered as a
// suggestion.
const maxSuggestDistance = 3

// editDistance is the Levenshtein distance between a and b, counted in runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// closest returns the index of the key nearest to input, or -1.
// Abbreviations ("conc" for "concurrency") are ranked by fuzzy score and win
// over typos, which fall back to edit distance.
func closest(input string, keys []string) int {
	if input == "" || len(keys) == 0 {
		return -1
	}
	if len([]rune(input)) >= 3 {
		if matches := fuzzy.Find(input, keys); len(matches) > 0 {
			return matches[0].Index
		}
	}

	best, bestDist := -1, maxSuggestDistance+1
	for i, key := range keys {
		if d := editDistance(input, key); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// suggestCommand returns the command name closest to unknown, or "".
func suggestCommand(unknown string, commands []string) string {
	keys := make([]string, len(commands))
	for i, c := range commands {
		keys[i] = strings.ToLower(c)
	}
	if i := closest(strings.ToLower(unknown), keys); i >= 0 {
		return commands[i]
	}
	return ""
}

// suggestFlag returns the flag closest to unknown, or "". Dashes are ignored
// while comparing; the match keeps its own prefix.
func suggestFlag(unknown string, flags []string) string {
	keys := make([]string, len(flags))
	for i, f := range flags {
		keys[i] = strings.ToLower(strings.TrimLeft(f, "-"))
	}
	if i := closest(strings.ToLower(strings.TrimLeft(unknown, "-")), keys); i >= 0 {
		return flags[i]
	}
	return ""
}
