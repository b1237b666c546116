package catalog

// Exercise is one movement in the static catalogue. Immutable after load.
type Exercise struct {
	ID      string `toml:"id" json:"id"`
	Name    string `toml:"name" json:"name"`
	CueText string `toml:"cue" json:"cueText,omitempty"`
}

// SlotChoice is one of the alternatives in a choose-one slot.
type SlotChoice struct {
	ExerciseID string `toml:"exercise_id" json:"exerciseId"`
	Rx         string `toml:"rx" json:"rx"`
}

// SessionSlot is one position in a session: either a fixed exercise
// (ExerciseID + Rx set, Choices empty) or an exclusive choice list
// (Choices set, ExerciseID empty). Exactly one form per slot.
type SessionSlot struct {
	ExerciseID string       `toml:"exercise_id" json:"exerciseId,omitempty"`
	Rx         string       `toml:"rx" json:"rx,omitempty"`
	Choices    []SlotChoice `toml:"choice" json:"choices,omitempty"`
	Note       string       `toml:"note" json:"note,omitempty"`
}

// IsChoice reports whether the slot is a choose-one-of-many slot.
func (s SessionSlot) IsChoice() bool {
	return len(s.Choices) > 0
}

// ExerciseIDs returns every exercise id the slot can resolve to.
func (s SessionSlot) ExerciseIDs() []string {
	if !s.IsChoice() {
		return []string{s.ExerciseID}
	}
	ids := make([]string, 0, len(s.Choices))
	for _, c := range s.Choices {
		ids = append(ids, c.ExerciseID)
	}
	return ids
}

// RxFor returns the prescription string for the given exercise id within
// this slot, or false when the exercise is not part of the slot.
func (s SessionSlot) RxFor(exerciseID string) (string, bool) {
	if !s.IsChoice() {
		if s.ExerciseID == exerciseID {
			return s.Rx, true
		}
		return "", false
	}
	for _, c := range s.Choices {
		if c.ExerciseID == exerciseID {
			return c.Rx, true
		}
	}
	return "", false
}

type Session struct {
	ID    string        `toml:"id" json:"id"`
	Name  string        `toml:"name" json:"name"`
	Slots []SessionSlot `toml:"slot" json:"slots"`
}

// Catalog is the full static catalogue: the ordered session rotation plus
// the exercise list. Loaded once per process, read-only afterwards.
type Catalog struct {
	Exercises []Exercise `toml:"exercise"`
	Sessions  []Session  `toml:"session"`

	exercisesByID  map[string]Exercise
	sessionIndexes map[string]int
}

// Len returns the number of sessions in the rotation.
func (c *Catalog) Len() int {
	return len(c.Sessions)
}

func (c *Catalog) ExerciseByID(id string) (Exercise, bool) {
	e, ok := c.exercisesByID[id]
	return e, ok
}

// SessionIndex resolves a session id to its position in the rotation.
func (c *Catalog) SessionIndex(id string) (int, bool) {
	i, ok := c.sessionIndexes[id]
	return i, ok
}

func (c *Catalog) SessionByID(id string) (Session, bool) {
	i, ok := c.sessionIndexes[id]
	if !ok {
		return Session{}, false
	}
	return c.Sessions[i], true
}

func (c *Catalog) buildIndexes() {
	c.exercisesByID = make(map[string]Exercise, len(c.Exercises))
	for _, e := range c.Exercises {
		c.exercisesByID[e.ID] = e
	}
	c.sessionIndexes = make(map[string]int, len(c.Sessions))
	for i, s := range c.Sessions {
		c.sessionIndexes[s.ID] = i
	}
}
