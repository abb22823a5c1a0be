package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogAssignsDenseIDs(t *testing.T) {
	sessions := []Session{
		{Title: "Talk A", Theme: "T1"},
		{Title: "Talk B", Theme: "T2"},
	}
	rooms := []Room{{Name: "Main"}}

	catalog, err := NewCatalog(sessions, rooms, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.SessionCount())
	assert.Equal(t, 0, catalog.Sessions[0].ID)
	assert.Equal(t, 1, catalog.Sessions[1].ID)
}

func TestNewCatalogRejectsInvalidInput(t *testing.T) {
	sessions := []Session{{Title: "Talk A", Theme: "T1"}}
	rooms := []Room{{Name: "Main"}}

	cases := []struct {
		name      string
		sessions  []Session
		rooms     []Room
		timeslots int
	}{
		{"no timeslots", sessions, rooms, 0},
		{"no rooms", sessions, nil, 2},
		{"no sessions", nil, rooms, 2},
		{"too many sessions", []Session{
			{Title: "A", Theme: "T"}, {Title: "B", Theme: "T"}, {Title: "C", Theme: "T"},
		}, rooms, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.sessions, tc.rooms, tc.timeslots)
			assert.Error(t, err)
		})
	}
}

func TestCatalogThemesDeduplicatedInFirstSeenOrder(t *testing.T) {
	sessions := []Session{
		{Title: "A", Theme: "Numerics"},
		{Title: "B", Theme: "Combinatorics"},
		{Title: "C", Theme: "Numerics"},
	}
	catalog, err := NewCatalog(sessions, []Room{{Name: "Main"}}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"Numerics", "Combinatorics"}, catalog.Themes())
	assert.Equal(t, 0, catalog.ThemeIndexOf(0))
	assert.Equal(t, 1, catalog.ThemeIndexOf(1))
	assert.Equal(t, 0, catalog.ThemeIndexOf(2))
}

func TestCatalogBreaksOrderingWithinFamilyOnly(t *testing.T) {
	sessions := []Session{
		{Title: "Series", Part: 1, Theme: "T"},
		{Title: "Series", Part: 2, Theme: "T"},
		{Title: "Standalone", Theme: "T"},
		{Title: "Other Series", Part: 1, Theme: "T"},
	}
	catalog, err := NewCatalog(sessions, []Room{{Name: "Main"}, {Name: "Annex"}}, 2)
	require.NoError(t, err)

	assert.True(t, catalog.BreaksOrdering(1, 0), "part 2 must not precede part 1")
	assert.False(t, catalog.BreaksOrdering(0, 1))
	assert.False(t, catalog.BreaksOrdering(1, 2), "standalone sessions have no ordering")
	assert.False(t, catalog.BreaksOrdering(1, 3), "parts of different titles are unrelated")
}

func TestCatalogHigherPriority(t *testing.T) {
	sessions := []Session{
		{Title: "A", Theme: "T", Priority: 5},
		{Title: "B", Theme: "T", Priority: 1},
	}
	catalog, err := NewCatalog(sessions, []Room{{Name: "Main"}}, 2)
	require.NoError(t, err)

	assert.True(t, catalog.HigherPriority(0, 1))
	assert.False(t, catalog.HigherPriority(1, 0))
	assert.False(t, catalog.HigherPriority(0, 0))
}

func TestCatalogSharesSpeaker(t *testing.T) {
	sessions := []Session{
		{Title: "A", Theme: "T", Speakers: []string{"ada", "grace"}},
		{Title: "B", Theme: "T", Speakers: []string{"knuth"}},
		{Title: "C", Theme: "T", Speakers: []string{"grace"}},
	}
	catalog, err := NewCatalog(sessions, []Room{{Name: "Main"}}, 3)
	require.NoError(t, err)

	assert.True(t, catalog.SharesSpeaker(0, 2))
	assert.False(t, catalog.SharesSpeaker(0, 1))
	assert.False(t, catalog.SharesSpeaker(1, 2))
}

func TestSessionFullTitle(t *testing.T) {
	assert.Equal(t, "Talk A", Session{Title: "Talk A"}.FullTitle())
	assert.Equal(t, "Talk A - Part 2", Session{Title: "Talk A", Part: 2}.FullTitle())
}
