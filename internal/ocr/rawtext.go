package ocr

import "strings"

// LineRange is a half-open [Start, End) range of line indices.
type LineRange struct {
	Start int
	End   int
}

// Len returns the number of lines in the range.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether line i falls inside the range.
func (r LineRange) Contains(i int) bool { return i >= r.Start && i < r.End }

// Clamp bounds the range to [0, n).
func (r LineRange) Clamp(n int) LineRange {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n {
		r.End = n
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// RawText is the merged, read-only line stream handed to the extractors.
// Each line keeps the confidence of the engine that produced it, if any.
type RawText struct {
	lines []Line
}

// NewRawText copies lines into a RawText without confidences.
func NewRawText(lines []string) RawText {
	cp := make([]Line, len(lines))
	for i, l := range lines {
		cp[i] = Line{Text: l}
	}
	return RawText{lines: cp}
}

// NewRawTextFromLines copies recognized lines, confidences included.
func NewRawTextFromLines(lines []Line) RawText {
	cp := make([]Line, len(lines))
	copy(cp, lines)
	return RawText{lines: cp}
}

// FromText normalizes s and splits it into non-blank lines.
func FromText(s string) RawText {
	return NewRawText(SplitLines(Normalize(s)))
}

func (t RawText) Len() int { return len(t.lines) }

func (t RawText) IsEmpty() bool { return len(t.lines) == 0 }

// Line returns line i, or "" when i is out of range.
func (t RawText) Line(i int) string {
	if i < 0 || i >= len(t.lines) {
		return ""
	}
	return t.lines[i].Text
}

// Confidence returns the confidence of line i in [0,1]. ok is false when the
// engine reported none or i is out of range.
func (t RawText) Confidence(i int) (conf float64, ok bool) {
	if i < 0 || i >= len(t.lines) || !t.lines[i].HasConfidence {
		return 0, false
	}
	return t.lines[i].Confidence, true
}

// Lines returns a copy of all line texts.
func (t RawText) Lines() []string {
	return texts(t.lines)
}

// All returns the full range of lines.
func (t RawText) All() LineRange { return LineRange{Start: 0, End: len(t.lines)} }

// Slice returns a copy of the line texts inside r (clamped to the text).
func (t RawText) Slice(r LineRange) []string {
	r = r.Clamp(len(t.lines))
	return texts(t.lines[r.Start:r.End])
}

// Text joins all lines with '\n'.
func (t RawText) Text() string { return strings.Join(t.Lines(), "\n") }

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
