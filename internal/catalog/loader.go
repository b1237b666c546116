package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Load reads and validates a catalogue TOML file.
func Load(path string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.buildIndexes()
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Sessions) == 0 {
		return fmt.Errorf("catalog has no sessions")
	}

	exerciseIDs := make(map[string]bool, len(c.Exercises))
	for _, e := range c.Exercises {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("exercise with empty id or name: %+v", e)
		}
		if exerciseIDs[e.ID] {
			return fmt.Errorf("duplicate exercise id: %s", e.ID)
		}
		exerciseIDs[e.ID] = true
	}

	sessionIDs := make(map[string]bool, len(c.Sessions))
	for _, s := range c.Sessions {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("session with empty id or name: %+v", s)
		}
		if sessionIDs[s.ID] {
			return fmt.Errorf("duplicate session id: %s", s.ID)
		}
		sessionIDs[s.ID] = true

		if len(s.Slots) == 0 {
			return fmt.Errorf("session %s has no slots", s.ID)
		}
		for i, slot := range s.Slots {
			if err := validateSlot(s.ID, i, slot, exerciseIDs); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateSlot(sessionID string, i int, slot SessionSlot, exerciseIDs map[string]bool) error {
	fixed := slot.ExerciseID != ""
	choice := len(slot.Choices) > 0
	if fixed == choice {
		return fmt.Errorf("session %s slot %d: exactly one of exercise_id or choice list required", sessionID, i)
	}
	if fixed {
		if !exerciseIDs[slot.ExerciseID] {
			return fmt.Errorf("session %s slot %d: unknown exercise id %s", sessionID, i, slot.ExerciseID)
		}
		return nil
	}
	if len(slot.Choices) < 2 {
		return fmt.Errorf("session %s slot %d: choice slot needs at least two choices", sessionID, i)
	}
	for _, ch := range slot.Choices {
		if !exerciseIDs[ch.ExerciseID] {
			return fmt.Errorf("session %s slot %d: unknown exercise id %s", sessionID, i, ch.ExerciseID)
		}
	}
	return nil
}
