// Package web holds the page templates and static assets served by jot and
// copied by the bundler.
package web

import (
	"embed"
	"regexp"
)

//go:embed index.html scratch.html style.css
var FS embed.FS

// IndexIDs are the element ids the signed-in/signed-out page must carry.
var IndexIDs = []string{
	"authContainer",
	"appContainer",
	"loginForm",
	"loginEmail",
	"loginPassword",
	"registerForm",
	"registerEmail",
	"registerPassword",
	"showRegister",
	"showLogin",
	"signOutBtn",
	"noteInput",
	"saveNoteBtn",
	"notesList",
}

// ScratchIDs are the element ids the scratch pad must carry.
var ScratchIDs = []string{"noteInput", "saveNoteBtn", "notesList"}

var idAttr = regexp.MustCompile(`\bid\s*=\s*"([^"]+)"`)

// MissingIDs returns the ids from want that no element in src declares, in
// the order given.
func MissingIDs(src []byte, want []string) []string {
	have := make(map[string]bool)
	for _, m := range idAttr.FindAllSubmatch(src, -1) {
		have[string(m[1])] = true
	}
	var missing []string
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
