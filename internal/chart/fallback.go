package chart

import "fmt"

// defaultFallback is served for any year offset without a curated
// entry. The caller always gets some song back.
var defaultFallback = Entry{Title: "Never Gonna Give You Up", Artist: "Rick Astley"}

// fallbackSongs maps year offsets from 1900 to a song for dates that
// precede the chart's coverage. Curated, extensible.
var fallbackSongs = map[int]Entry{
	0:  {Title: "Flight of the Bumblebee", Artist: "Nikolai Rimsky-Korsakov"},
	1:  {Title: "Number 1", Artist: "Tinchy Stryder"},
	2:  {Title: "The Entertainer", Artist: "Scott Joplin"},
	4:  {Title: "I'm A Yankee Doodle Dandy", Artist: "George M. Cohan"},
	5:  {Title: "5 Years Time", Artist: "Noah and the Whale"},
	7:  {Title: "7 Years", Artist: "Lukas Graham"},
	13: {Title: "Rite of Spring", Artist: "Igor Stravinsky"},
	21: {Title: "Someone Like You", Artist: "Adele"},
	22: {Title: "22", Artist: "Taylor Swift"},
	24: {Title: "24K Magic", Artist: "Bruno Mars"},
	42: {Title: "42", Artist: "Coldplay"},
}

// Default returns the universal default entry.
func Default() Entry {
	return defaultFallback
}

// Fallback returns the curated song for a year offset, or the
// universal default when no entry is curated. The second return
// reports whether the offset had a curated entry. Never performs I/O.
func Fallback(yearOffset int) (Entry, bool) {
	if entry, ok := fallbackSongs[yearOffset]; ok {
		return entry, true
	}
	return defaultFallback, false
}

// FallbackDescription explains to the user why they received a
// fallback song instead of a chart entry.
func FallbackDescription(chartID string, entry Entry) string {
	return fmt.Sprintf("Your results were before the %s chart started in %d. Here's %s by %s instead.",
		chartID, CoverageStartYear, entry.Title, entry.Artist)
}
