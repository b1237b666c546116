package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const testCatalogToml = `
[[exercise]]
id = "bench"
name = "Bench Press"
cue = "tight upper back"

[[exercise]]
id = "squat"
name = "Back Squat"

[[exercise]]
id = "leg_press"
name = "Leg Press"

[[session]]
id = "day_a"
name = "Day A"

  [[session.slot]]
  exercise_id = "bench"
  rx = "3x5-8"

[[session]]
id = "day_b"
name = "Day B"

  [[session.slot]]
  note = "pick one"

    [[session.slot.choice]]
    exercise_id = "squat"
    rx = "3x5"

    [[session.slot.choice]]
    exercise_id = "leg_press"
    rx = "3x8-12"
`

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalogFile(t, testCatalogToml))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	bench, ok := c.ExerciseByID("bench")
	require.True(t, ok)
	assert.Equal(t, "Bench Press", bench.Name)
	assert.Equal(t, "tight upper back", bench.CueText)

	_, ok = c.ExerciseByID("deadlift")
	assert.False(t, ok)

	i, ok := c.SessionIndex("day_b")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = c.SessionIndex("day_c")
	assert.False(t, ok)

	dayA, ok := c.SessionByID("day_a")
	require.True(t, ok)
	require.Len(t, dayA.Slots, 1)
	assert.False(t, dayA.Slots[0].IsChoice())
	assert.Equal(t, []string{"bench"}, dayA.Slots[0].ExerciseIDs())

	dayB, ok := c.SessionByID("day_b")
	require.True(t, ok)
	require.Len(t, dayB.Slots, 1)
	choiceSlot := dayB.Slots[0]
	assert.True(t, choiceSlot.IsChoice())
	assert.Equal(t, "pick one", choiceSlot.Note)
	assert.Equal(t, []string{"squat", "leg_press"}, choiceSlot.ExerciseIDs())

	rx, ok := choiceSlot.RxFor("leg_press")
	require.True(t, ok)
	assert.Equal(t, "3x8-12", rx)
	_, ok = choiceSlot.RxFor("bench")
	assert.False(t, ok)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		toml string
	}{
		{
			name: "no sessions",
			toml: `
[[exercise]]
id = "bench"
name = "Bench Press"
`,
		},
		{
			name: "unknown exercise reference",
			toml: `
[[exercise]]
id = "bench"
name = "Bench Press"

[[session]]
id = "day_a"
name = "Day A"

  [[session.slot]]
  exercise_id = "nope"
  rx = "3x5"
`,
		},
		{
			name: "duplicate exercise id",
			toml: `
[[exercise]]
id = "bench"
name = "Bench Press"

[[exercise]]
id = "bench"
name = "Bench Press Again"

[[session]]
id = "day_a"
name = "Day A"

  [[session.slot]]
  exercise_id = "bench"
  rx = "3x5"
`,
		},
		{
			name: "slot with both forms",
			toml: `
[[exercise]]
id = "bench"
name = "Bench Press"

[[exercise]]
id = "squat"
name = "Back Squat"

[[session]]
id = "day_a"
name = "Day A"

  [[session.slot]]
  exercise_id = "bench"
  rx = "3x5"

    [[session.slot.choice]]
    exercise_id = "squat"
    rx = "3x5"
`,
		},
		{
			name: "choice slot with one choice",
			toml: `
[[exercise]]
id = "squat"
name = "Back Squat"

[[session]]
id = "day_a"
name = "Day A"

  [[session.slot]]

    [[session.slot.choice]]
    exercise_id = "squat"
    rx = "3x5"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeCatalogFile(t, tc.toml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ShippedCatalog(t *testing.T) {
	c, err := Load("../../assets/catalog.toml")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	// every slot rx in the shipped rotation must reference a known exercise
	for _, s := range c.Sessions {
		for _, slot := range s.Slots {
			for _, id := range slot.ExerciseIDs() {
				_, ok := c.ExerciseByID(id)
				assert.True(t, ok, "session %s references unknown exercise %s", s.ID, id)
			}
		}
	}
}
