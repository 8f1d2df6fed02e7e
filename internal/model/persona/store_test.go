package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedHasCharacterAndCoach(t *testing.T) {
	store := NewMemoryStore(Seed())

	mio, ok := store.FindByID("mio")
	require.True(t, ok)
	assert.Equal(t, RoleCharacter, mio.Role)
	assert.NotEmpty(t, mio.Rules)

	coach, ok := store.FirstWithRole(RoleCoach)
	require.True(t, ok)
	assert.Equal(t, "ten", coach.ID)
	assert.True(t, coach.IsCoach())

	_, ok = store.FindByID("nobody")
	assert.False(t, ok)
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "changed"
	assert.Equal(t, "Mio", store.List()[0].Name)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	roster := `
personas:
  - id: aoi
    name: Aoi
    tone: calm
    prompt_hint: Speak slowly.
    interests: [tea, books]
  - id: sensei
    role: coach
`
	require.NoError(t, os.WriteFile(path, []byte(roster), 0o600))

	personas, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, personas, 2)
	assert.Equal(t, RoleCharacter, personas[0].Role)
	assert.Equal(t, "Speak slowly.", personas[0].PromptHint)
	assert.Equal(t, []string{"tea", "books"}, personas[0].Interests)
	assert.Equal(t, RoleCoach, personas[1].Role)
	assert.Equal(t, "sensei", personas[1].Name)
}

func TestParseRejectsBadRosters(t *testing.T) {
	tests := map[string]string{
		"empty":        "personas: []",
		"missing id":   "personas:\n  - name: x",
		"duplicate id": "personas:\n  - id: a\n  - id: a",
		"bad role":     "personas:\n  - id: a\n    role: villain",
		"not yaml":     "personas: [",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("personas: []"))
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
