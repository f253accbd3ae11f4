package subtitles

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	timingLine   = regexp.MustCompile(`^\s*\d{1,2}:\d{2}:\d{2}[.,]\d{1,3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[.,]\d{1,3}`)
	subSecondSep = regexp.MustCompile(`(\d{1,2}:\d{2}:\d{2})\.(\d{1,3})`)
	cueNumber    = regexp.MustCompile(`^\s*\d+\s*$`)
)

// ConvertFormat rewrites long-form captions into the short form: the header
// is stripped, cues are renumbered from 1 regardless of any existing
// numbering, sub-second separators in timing lines switch from `.` to `,`,
// and text lines pass through untouched. The conversion is deterministic and
// idempotent, and never reorders cues.
func ConvertFormat(longForm string) string {
	body := strings.ReplaceAll(longForm, "\r\n", "\n")
	body = strings.TrimSpace(body)
	if header, rest, found := strings.Cut(body, "\n"); found && strings.HasPrefix(strings.TrimSpace(header), vttHeader) {
		body = rest
	} else if strings.HasPrefix(strings.TrimSpace(body), vttHeader) {
		body = ""
	}

	blocks := strings.Split(body, "\n\n")
	var cues []string
	index := 1
	for _, block := range blocks {
		cue := convertCue(block, index)
		if cue == "" {
			continue
		}
		cues = append(cues, cue)
		index++
	}
	return strings.Join(cues, "\n\n")
}

func convertCue(block string, index int) string {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	var kept []string
	for _, line := range lines {
		switch {
		case len(kept) == 0 && cueNumber.MatchString(line):
			// existing numbering is discarded and reassigned
		case len(kept) == 0 && timingLine.MatchString(line):
			kept = append(kept, subSecondSep.ReplaceAllString(strings.TrimSpace(line), "$1,$2"))
		default:
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) == 1 && strings.TrimSpace(kept[0]) == "" {
		return ""
	}
	return fmt.Sprintf("%d\n%s", index, strings.Join(kept, "\n"))
}
