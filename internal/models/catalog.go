package models

import (
	"fmt"
	"strings"
)

// Session represents one minisymposium: a themed block of talks that occupies
// exactly one (timeslot, room) cell of the conference grid. ID is the dense
// index assigned by the catalog, 0..len(sessions)-1.
type Session struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Part     int      `json:"part,omitempty"` // 1-based for multi-part sessions, 0 when standalone
	Theme    string   `json:"theme"`
	Priority int      `json:"priority"` // higher values claim higher-priority rooms
	Speakers []string `json:"speakers,omitempty"`
}

// FullTitle includes the part suffix for multi-part sessions.
func (s Session) FullTitle() string {
	if s.Part > 0 {
		return fmt.Sprintf("%s - Part %d", s.Title, s.Part)
	}
	return s.Title
}

// Room is a physical resource available in every timeslot.
type Room struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"` // higher values are assigned first within a timeslot
}

// Catalog bundles the session and room catalogues with the timeslot count and
// exposes the constraint predicates consumed by the genetic engine.
type Catalog struct {
	Sessions  []Session
	Rooms     []Room
	Timeslots int

	themes     []string
	themeIndex map[string]int
	family     []int // sessions sharing a title share a family id; -1 for standalone
}

// NewCatalog validates the inputs and assigns dense session IDs in input order.
func NewCatalog(sessions []Session, rooms []Room, timeslots int) (*Catalog, error) {
	if timeslots < 1 {
		return nil, fmt.Errorf("catalog requires at least one timeslot")
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("catalog requires at least one room")
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("catalog requires at least one session")
	}
	if len(sessions) > timeslots*len(rooms) {
		return nil, fmt.Errorf("%d sessions exceed the %d available (timeslot, room) cells", len(sessions), timeslots*len(rooms))
	}

	c := &Catalog{
		Sessions:   make([]Session, len(sessions)),
		Rooms:      rooms,
		Timeslots:  timeslots,
		themeIndex: make(map[string]int),
		family:     make([]int, len(sessions)),
	}

	familyByTitle := make(map[string]int)
	for i, s := range sessions {
		s.ID = i
		c.Sessions[i] = s

		theme := strings.TrimSpace(s.Theme)
		if _, ok := c.themeIndex[theme]; !ok {
			c.themeIndex[theme] = len(c.themes)
			c.themes = append(c.themes, theme)
		}

		c.family[i] = -1
		if s.Part > 0 {
			if fid, ok := familyByTitle[s.Title]; ok {
				c.family[i] = fid
			} else {
				familyByTitle[s.Title] = i
				c.family[i] = i
			}
		}
	}

	return c, nil
}

// SessionCount reports the number of schedulable sessions.
func (c *Catalog) SessionCount() int {
	return len(c.Sessions)
}

// Themes returns the distinct theme names in first-seen order.
func (c *Catalog) Themes() []string {
	return c.themes
}

// ThemeIndexOf maps a session id to its dense theme index.
func (c *Catalog) ThemeIndexOf(id int) int {
	return c.themeIndex[strings.TrimSpace(c.Sessions[id].Theme)]
}

// BreaksOrdering reports whether scheduling `first` in an earlier timeslot
// than `second` violates the multi-part ordering constraint: both sessions
// belong to the same family and `first` is a later part.
func (c *Catalog) BreaksOrdering(first, second int) bool {
	if c.family[first] < 0 || c.family[first] != c.family[second] {
		return false
	}
	return c.Sessions[first].Part > c.Sessions[second].Part
}

// HigherPriority reports whether session a outranks session b for placement
// in higher-priority rooms.
func (c *Catalog) HigherPriority(a, b int) bool {
	return c.Sessions[a].Priority > c.Sessions[b].Priority
}

// SharesSpeaker reports whether two sessions have at least one speaker in
// common and therefore cannot run in the same timeslot.
func (c *Catalog) SharesSpeaker(a, b int) bool {
	for _, sa := range c.Sessions[a].Speakers {
		for _, sb := range c.Sessions[b].Speakers {
			if sa == sb {
				return true
			}
		}
	}
	return false
}
