package view

import (
	"fmt"
	"slices"
	"time"

	"github.com/meltforce/treinos/internal/models"
)

var monthsPT = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// NewestFirst returns a copy of workouts sorted by CreatedAt, newest first.
// Ties keep their input order.
func NewestFirst(workouts []models.Workout) []models.Workout {
	out := slices.Clone(workouts)
	slices.SortStableFunc(out, func(a, b models.Workout) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// FormatCreated renders a date as "2 de janeiro" (pt-BR, day and month).
func FormatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d de %s", t.Day(), monthsPT[t.Month()-1])
}

// GroupLabel is the chip label for a group key.
func GroupLabel(key string) string {
	return "Treino " + key
}
