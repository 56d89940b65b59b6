package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpamThreshold is the confidence above which text is considered spam
const SpamThreshold = 30

const (
	minCharRun  = 11 // a character followed by 10+ copies of itself
	minWordRun  = 6  // a word followed by 5+ copies of itself
	shortLength = 50

	specialCharRatio = 0.3
	digitRatio       = 0.5
)

type spamRule struct {
	name string
	re   *regexp.Regexp
}

var spamRules = []spamRule{
	{"raw URL", regexp.MustCompile(`(?i)https?://\S+`)},
	{"www host", regexp.MustCompile(`(?i)www\.\S+`)},
	{"bare domain", regexp.MustCompile(`(?i)[a-z0-9-]+\.(com|org|net|info|biz|click|tk|ml|ga|cf)`)},
	{"pharmacy or gambling vocabulary", regexp.MustCompile(`(?i)viagra|cialis|pharmacy|casino|poker|lottery|winner|congratulations`)},
	{"pressure phrasing", regexp.MustCompile(`(?i)click here|visit now|act now|limited time|hurry up`)},
	{"money-making phrasing", regexp.MustCompile(`(?i)make money|work from home|earn \$|guaranteed income`)},
	{"weight-loss phrasing", regexp.MustCompile(`(?i)lose weight|diet pills|weight loss`)},
	{"free-offer phrasing", regexp.MustCompile(`(?i)free trial|no cost|100% free|risk free`)},
	{"excessive capitals", regexp.MustCompile(`[A-Z]{10,}`)},
	{"money amount", regexp.MustCompile(`(?i)\$\d+|\d+\$|\d+\s?(dollars?|usd|euros?)`)},
	{"embedded email address", regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)},
}

var dollarAmount = regexp.MustCompile(`\$\d+`)

// DetectSpam scores text with pattern and ratio heuristics.
// Every matched rule is reported so false positives stay inspectable.
func DetectSpam(text string) SpamCheckResult {
	if text == "" {
		return SpamCheckResult{DetectedPatterns: []string{}}
	}

	var detected []string
	score := 0

	for _, rule := range spamRules {
		if n := len(rule.re.FindAllStringIndex(text, -1)); n > 0 {
			detected = append(detected, fmt.Sprintf("Spam pattern: %s", rule.name))
			score += n
		}
	}
	if n := countCharRuns(text); n > 0 {
		detected = append(detected, "Spam pattern: repeated characters")
		score += n
	}
	if n := countWordRuns(text); n > 0 {
		detected = append(detected, "Spam pattern: repeated words")
		score += n
	}

	length := utf8.RuneCountInString(text)
	specials, digits := 0, 0
	for _, r := range text {
		if strings.ContainsRune(`!@#$%^&*()_+={}[]|\:";'<>?,./`, r) {
			specials++
		}
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	if float64(specials)/float64(length) > specialCharRatio {
		detected = append(detected, "Excessive special characters")
		score += 3
	}
	if float64(digits)/float64(length) > digitRatio {
		detected = append(detected, "Excessive numbers")
		score += 2
	}
	if length < shortLength && (strings.Contains(text, "http") || dollarAmount.MatchString(text)) {
		detected = append(detected, "Short message with suspicious content")
		score += 5
	}

	confidence := min(score*10, 100)
	if detected == nil {
		detected = []string{}
	}
	return SpamCheckResult{
		IsSpam:           confidence > SpamThreshold,
		Confidence:       confidence,
		DetectedPatterns: detected,
	}
}

// countCharRuns counts maximal runs of one character (case-insensitive)
// repeated at least minCharRun times. Line breaks end a run.
func countCharRuns(text string) int {
	count, run := 0, 0
	var prev rune = -1
	for _, r := range text {
		lr := unicode.ToLower(r)
		if r != '\n' && lr == prev {
			run++
		} else {
			if run >= minCharRun {
				count++
			}
			run = 1
			if r == '\n' {
				prev = -1
				run = 0
				continue
			}
		}
		prev = lr
	}
	if run >= minCharRun {
		count++
	}
	return count
}

// countWordRuns counts runs of the same word (ASCII word characters,
// case-insensitive) repeated at least minWordRun times, separated only by
// whitespace.
func countWordRuns(text string) int {
	count, run := 0, 0
	prev := ""
	i := 0
	for i < len(text) {
		if !isWordByte(text[i]) {
			if !isSpaceByte(text[i]) {
				// punctuation breaks a run
				if run >= minWordRun {
					count++
				}
				run, prev = 0, ""
			}
			i++
			continue
		}
		j := i
		for j < len(text) && isWordByte(text[j]) {
			j++
		}
		word := strings.ToLower(text[i:j])
		if word == prev {
			run++
		} else {
			if run >= minWordRun {
				count++
			}
			prev, run = word, 1
		}
		i = j
	}
	if run >= minWordRun {
		count++
	}
	return count
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
