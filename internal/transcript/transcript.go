// Package transcript normalises raw interview transcripts before they are
// handed to the analysis agents.
package transcript

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Turn is one speaker's contribution.
type Turn struct {
	Speaker string
	Text    string
}

var (
	timecodeRe = regexp.MustCompile(`^\[?\d{1,2}:\d{2}(:\d{2})?\]?\s*`)
	speakerRe  = regexp.MustCompile(`^([A-Za-z][\w .'-]{0,40}):\s+(.*)$`)
)

// ErrEmpty is returned when a transcript has no usable content.
var ErrEmpty = errors.New("transcript is empty")

// Normalize cleans a raw transcript: unifies line endings, strips leading
// timecodes, trims trailing whitespace, and collapses blank-line runs.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(raw, "\n") {
		line = timecodeRe.ReplaceAllString(strings.TrimRight(line, " \t"), "")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// ParseTurns splits a normalised transcript into speaker turns. Lines without
// a speaker prefix continue the previous turn; leading unattributed text gets
// an empty speaker.
func ParseTurns(text string) []Turn {
	var turns []Turn
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := speakerRe.FindStringSubmatch(line); m != nil {
			turns = append(turns, Turn{Speaker: m[1], Text: m[2]})
			continue
		}
		if len(turns) == 0 {
			turns = append(turns, Turn{Text: line})
			continue
		}
		turns[len(turns)-1].Text += "\n" + line
	}
	return turns
}

// Speakers returns the distinct speaker names in order of first appearance.
func Speakers(turns []Turn) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range turns {
		if t.Speaker == "" || seen[t.Speaker] {
			continue
		}
		seen[t.Speaker] = true
		out = append(out, t.Speaker)
	}
	return out
}

// Prepare normalises a transcript and bounds it to budget characters,
// truncating at a turn boundary so no speaker turn is cut mid-sentence.
// A budget of zero means unbounded.
func Prepare(raw string, budget int) (string, error) {
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	if budget <= 0 || len(text) <= budget {
		return text, nil
	}

	turns := ParseTurns(text)
	var sb strings.Builder
	for _, t := range turns {
		line := t.Text
		if t.Speaker != "" {
			line = t.Speaker + ": " + t.Text
		}
		if sb.Len()+len(line)+1 > budget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() == 0 {
		// The first turn alone blows the budget; hard cut, backed up to a
		// rune boundary so the result stays valid UTF-8.
		cut := budget
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut], nil
	}
	return sb.String(), nil
}
