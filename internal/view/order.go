// Package view holds the presentation rules shared by every front end:
// group display order, the inline carga editor and workout list helpers.
package view

import (
	"slices"

	"github.com/meltforce/treinos/internal/models"
)

// KnownGroupKeys are the workout-day labels with a fixed display rank.
var KnownGroupKeys = []string{"A", "B", "C", "D"}

// Group is one (key, exercises) pair in display order.
type Group struct {
	Key       string
	Exercises []models.Exercise
}

// GroupRank returns the display rank of a group key: A=0, B=1, C=2, D=3.
// Every other key ranks after all known keys.
func GroupRank(key string) int {
	if i := slices.Index(KnownGroupKeys, key); i >= 0 {
		return i
	}
	return len(KnownGroupKeys)
}

// OrderGroups lists groups for display. Known keys come first in rank order;
// the rest keep their insertion order (keys absent from order follow, sorted).
// The mapping is not modified; the returned slices alias its exercises.
func OrderGroups(groups models.Groups, order []string) []Group {
	keys := groups.Keys(order)
	slices.SortStableFunc(keys, func(a, b string) int {
		return GroupRank(a) - GroupRank(b)
	})

	out := make([]Group, len(keys))
	for i, k := range keys {
		out[i] = Group{Key: k, Exercises: groups[k]}
	}
	return out
}

// KnownGroups returns the known keys present in groups, in rank order.
func KnownGroups(groups models.Groups) []string {
	var present []string
	for _, k := range KnownGroupKeys {
		if _, ok := groups[k]; ok {
			present = append(present, k)
		}
	}
	return present
}
