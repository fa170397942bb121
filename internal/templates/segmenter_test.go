package templates

import (
	"strings"
	"testing"
)

func TestSegmentLocatesTransactionBlock(t *testing.T) {
	reg := NewRegistry()
	text := strings.Join([]string{
		"ACME BANK",
		"Date Transaction Details Amount Balance",
		"15 Jan 2024 GROCERIES -45.00 905.00",
		"Page 1 of 2",
		"16 Jan 2024 FUEL -60.00 845.00",
		"Closing Balance 845.00",
		"fine print",
	}, "\n")

	seg := Segment(text, TemplateManualAmountBalance, reg)

	if !seg.Debug.HeaderFound {
		t.Fatal("header not found")
	}
	if seg.Debug.StopReason != StopReasonAnchor {
		t.Errorf("stop reason = %s, want %s", seg.Debug.StopReason, StopReasonAnchor)
	}
	if strings.Contains(seg.SectionText, "Page 1 of 2") {
		t.Error("page noise not removed")
	}
	if strings.Contains(seg.SectionText, "Closing Balance") {
		t.Error("stop anchor line leaked into the section")
	}
	if !strings.Contains(seg.SectionText, "GROCERIES") || !strings.Contains(seg.SectionText, "FUEL") {
		t.Errorf("section missing rows: %q", seg.SectionText)
	}
	if seg.Debug.StartLine != 3 {
		t.Errorf("start line = %d, want 3", seg.Debug.StartLine)
	}
}

func TestSegmentFuzzyAnchorMatching(t *testing.T) {
	reg := NewRegistry()
	// Extra spaces and punctuation from PDF extraction.
	text := strings.Join([]string{
		"Date   Transaction  Details -  Amount  Balance",
		"15 Jan 2024 GROCERIES -45.00 905.00",
	}, "\n")

	seg := Segment(text, TemplateManualAmountBalance, reg)
	if !seg.Debug.HeaderFound {
		t.Error("compacted anchor match should find the mangled header")
	}
}

func TestSegmentNeverFails(t *testing.T) {
	reg := NewRegistry()

	unknown := Segment("some text\nmore text", "not_a_template", reg)
	if unknown.Debug.StopReason != StopReasonUnknownTemplate {
		t.Errorf("stop reason = %s", unknown.Debug.StopReason)
	}
	if unknown.SectionText == "" {
		t.Error("unknown template must yield the full text")
	}

	noHeader := Segment("just body text\n15 Jan 2024 ROW -1.00 2.00", TemplateManualAmountBalance, reg)
	if noHeader.Debug.HeaderFound {
		t.Error("no header present, HeaderFound must be false")
	}
	if !strings.Contains(noHeader.SectionText, "ROW") {
		t.Error("missing header must still yield the text")
	}
}
