package protection

import "strings"

// Chord a key press with its modifier state, as reported by the client
type Chord struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

func (ch Chord) normalized() Chord {
	ch.Key = strings.ToLower(ch.Key)
	return ch
}

// blockedChords capture-oriented combinations suppressed at the document
// level: save, print, view-source and the common devtools chords. Best
// effort only, OS-level capture tools are out of reach.
var blockedChords = map[Chord]bool{
	{Key: "s", Ctrl: true}:              true, // save page
	{Key: "s", Meta: true}:              true,
	{Key: "p", Ctrl: true}:              true, // print
	{Key: "p", Meta: true}:              true,
	{Key: "u", Ctrl: true}:              true, // view source
	{Key: "f12"}:                        true, // devtools
	{Key: "i", Ctrl: true, Shift: true}: true,
	{Key: "j", Ctrl: true, Shift: true}: true,
	{Key: "c", Ctrl: true, Shift: true}: true,
	{Key: "i", Meta: true, Alt: true}:   true,
	{Key: "j", Meta: true, Alt: true}:   true,
	{Key: "c", Meta: true, Alt: true}:   true,
	{Key: "printscreen"}:                true,
}

// BlockedChord report whether the chord must be suppressed
func BlockedChord(ch Chord) bool {
	return blockedChords[ch.normalized()]
}
