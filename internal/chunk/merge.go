package chunk

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/thywilljoshua/haunted-syllabus/internal/boundary"
)

// MergeReport records how each pair of neighbouring chunks was joined.
type MergeReport struct {
	Chunks         int    `json:"chunks"`
	Matched        int    `json:"matched"`
	HalfMatched    int    `json:"half_matched"`
	Separated      int    `json:"separated"`
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Merge joins chunks in index order, dropping the overlap the chunker added.
func Merge(chunks []TextChunk, overlapSize int) string {
	out, _ := MergeWithReport(chunks, overlapSize)
	return out
}

// MergeWithReport is Merge plus a description of the joins. For each chunk the
// trailing overlapSize runes of the text merged so far are looked up near the
// start of the chunk; failing that, half the window is tried; failing that,
// the chunk is appended after a newline. A panic anywhere in the fold falls
// back to MergeSequential.
func MergeWithReport(chunks []TextChunk, overlapSize int) (merged string, report MergeReport) {
	report.Chunks = len(chunks)
	switch len(chunks) {
	case 0:
		return "", report
	case 1:
		return chunks[0].Content, report
	}

	defer func() {
		if r := recover(); r != nil {
			merged = MergeSequential(chunks)
			report = MergeReport{
				Chunks:         len(chunks),
				Fallback:       true,
				FallbackReason: fmt.Sprint(r),
			}
		}
	}()

	sorted := sortByIndex(chunks)
	if overlapSize <= 0 {
		return joinContents(sorted), report
	}

	var b strings.Builder
	b.WriteString(sorted[0].Content)
	for _, c := range sorted[1:] {
		so := b.String()
		if rest, ok := trimOverlap(so, c.Content, overlapSize, overlapSize); ok {
			report.Matched++
			b.WriteString(rest)
			continue
		}
		if rest, ok := trimOverlap(so, c.Content, overlapSize/2, overlapSize); ok {
			report.HalfMatched++
			b.WriteString(rest)
			continue
		}
		report.Separated++
		b.WriteByte('\n')
		b.WriteString(c.Content)
	}
	return b.String(), report
}

// MergeSequential concatenates chunk contents in index order.
func MergeSequential(chunks []TextChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return joinContents(sortByIndex(chunks))
}

// trimOverlap looks for the last window runes of merged inside next, starting
// within its first limit runes, and returns what follows the match.
func trimOverlap(merged, next string, window, limit int) (string, bool) {
	if window <= 0 {
		return "", false
	}
	candidate := merged[boundary.Retreat(merged, len(merged), window):]
	region := next[:boundary.Advance(next, 0, limit+utf8.RuneCountInString(candidate))]
	at := strings.Index(region, candidate)
	if at < 0 || utf8.RuneCountInString(next[:at]) >= limit {
		return "", false
	}
	return next[at+len(candidate):], true
}

func sortByIndex(chunks []TextChunk) []TextChunk {
	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b TextChunk) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return sorted
}

func joinContents(chunks []TextChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Content)
	}
	return b.String()
}
