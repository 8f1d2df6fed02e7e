package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tennokoe/internal/model/persona"
)

func get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed()), "mio").RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListPersonas(t *testing.T) {
	rec := get(t, "/personas")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []persona.Persona
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, len(persona.Seed()))
}

func TestActivePersona(t *testing.T) {
	rec := get(t, "/personas/active")
	require.Equal(t, http.StatusOK, rec.Code)
	var got persona.Persona
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "mio", got.ID)
	assert.Equal(t, persona.RoleCharacter, got.Role)
}

func TestUnknownPersona(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, "/personas/nobody").Code)
}
