package templates

import (
	"strings"

	"bank-transfer-reconciler/internal/models"
)

// Segment stop reasons.
const (
	StopReasonAnchor          = "stop-anchor"
	StopReasonEndOfText       = "end-of-text"
	StopReasonUnknownTemplate = "unknown-template"
)

// SegmentResult is the located transaction block plus debug info.
type SegmentResult struct {
	SectionText string
	Debug       models.SegmentDebug
}

// Segment locates the transaction block for the given template.
// Segmentation never fails: an unknown template or a missing header
// yields the full trimmed text with HeaderFound=false. Absence of a
// header is a quality signal, not a fatal condition.
func Segment(text, templateID string, reg *Registry) SegmentResult {
	lines := strings.Split(text, "\n")

	tmpl, ok := reg.Get(templateID)
	if !ok {
		return SegmentResult{
			SectionText: strings.TrimSpace(text),
			Debug: models.SegmentDebug{
				StartLine:   1,
				EndLine:     len(lines),
				HeaderFound: false,
				StopReason:  StopReasonUnknownTemplate,
			},
		}
	}

	headerIdx := -1
	for i, line := range lines {
		if matchesAnyAnchor(line, tmpl.HeaderAnchors) {
			headerIdx = i
			break
		}
	}

	start := 0
	headerFound := headerIdx >= 0
	if headerFound {
		start = headerIdx
		if tmpl.StartAfterHeader {
			start = headerIdx + 1
		}
	}

	end := len(lines)
	stopReason := StopReasonEndOfText
	for i := start; i < len(lines); i++ {
		if matchesAnyAnchor(lines[i], tmpl.StopAnchors) {
			end = i
			stopReason = StopReasonAnchor
			break
		}
	}

	section := lines[start:end]
	var kept []string
	for _, line := range section {
		if removeLine(line, tmpl) {
			continue
		}
		kept = append(kept, line)
	}

	return SegmentResult{
		SectionText: strings.TrimSpace(strings.Join(kept, "\n")),
		Debug: models.SegmentDebug{
			StartLine:   start + 1,
			EndLine:     end,
			HeaderFound: headerFound,
			StopReason:  stopReason,
		},
	}
}

func removeLine(line string, tmpl *Template) bool {
	trimmed := strings.TrimSpace(line)
	for _, re := range tmpl.LineRemovals {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func matchesAnyAnchor(line string, anchors []string) bool {
	for _, anchor := range anchors {
		if anchorMatches(line, anchor) {
			return true
		}
	}
	return false
}

// anchorMatches tolerates the inconsistent whitespace and punctuation
// PDF text extraction produces: a line matches when either the plain
// case-insensitive substring test or the alphanumeric-compacted
// substring test passes.
func anchorMatches(line, anchor string) bool {
	if anchor == "" {
		return false
	}
	lowerLine := strings.ToLower(line)
	lowerAnchor := strings.ToLower(anchor)
	if strings.Contains(lowerLine, lowerAnchor) {
		return true
	}
	return strings.Contains(compactAlnum(lowerLine), compactAlnum(lowerAnchor))
}

func compactAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
