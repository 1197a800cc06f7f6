package ocr

import "strings"

// Merge combines engine results into one RawText.
//
// A single non-empty result passes through unchanged. With several, lines are
// aligned by position and each position keeps the candidate with the higher
// confidence; when either side lacks a confidence, or both are equal, the
// longer line wins, and on equal length the earlier engine wins. A blank
// candidate never beats a non-blank one. Lines are never combined character
// by character.
func Merge(results ...Result) RawText {
	var present []Result
	for _, r := range results {
		if len(r.Lines) > 0 {
			present = append(present, r)
		}
	}
	switch len(present) {
	case 0:
		return RawText{}
	case 1:
		return NewRawTextFromLines(present[0].Lines)
	}

	longest := 0
	for _, r := range present {
		if len(r.Lines) > longest {
			longest = len(r.Lines)
		}
	}

	merged := make([]Line, 0, longest)
	for i := 0; i < longest; i++ {
		var best *Line
		for _, r := range present {
			if i >= len(r.Lines) {
				continue
			}
			cand := r.Lines[i]
			if best == nil || better(cand, *best) {
				best = &cand
			}
		}
		if best != nil && strings.TrimSpace(best.Text) != "" {
			merged = append(merged, *best)
		}
	}
	return RawText{lines: merged}
}

// better reports whether cand should replace the current best line.
func better(cand, best Line) bool {
	candBlank, bestBlank := strings.TrimSpace(cand.Text) == "", strings.TrimSpace(best.Text) == ""
	if candBlank != bestBlank {
		return bestBlank
	}
	if cand.HasConfidence && best.HasConfidence && cand.Confidence != best.Confidence {
		return cand.Confidence > best.Confidence
	}
	return len([]rune(strings.TrimSpace(cand.Text))) > len([]rune(strings.TrimSpace(best.Text)))
}
