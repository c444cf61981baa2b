package frontend

import (
	"strconv"

	"jot/models"
)

// Row is one rendered list entry. DeleteURL is empty on the scratch pad.
type Row struct {
	ID        int64
	Text      string
	DeleteURL string
}

// RenderNotes builds one row per note, in the order given.
func RenderNotes(notes []models.Note) []Row {
	rows := make([]Row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, Row{
			ID:        n.ID,
			Text:      n.Content,
			DeleteURL: "/notes/" + strconv.FormatInt(n.ID, 10) + "/delete",
		})
	}
	return rows
}

func RenderScratch(texts []string) []Row {
	rows := make([]Row, 0, len(texts))
	for _, t := range texts {
		rows = append(rows, Row{Text: t})
	}
	return rows
}
