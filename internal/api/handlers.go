package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/MJE43/dnd-master-desktop/internal/backup"
	"github.com/MJE43/dnd-master-desktop/internal/campaign"
)

const (
	maxBodyBytes   = 4 << 20
	maxImportBytes = 64 << 20
)

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

// decodeBody decodes a JSON body into v. It writes the error response and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "invalid JSON body: "+err.Error(), "body")
		return false
	}
	return true
}

func readPatch(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, "read body: "+err.Error(), "body")
		return nil, false
	}
	return raw, true
}

// ---- document ----

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Data())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Settings())
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	patch, ok := readPatch(w, r)
	if !ok {
		return
	}
	// Accept full BCP 47 tags from clients and store the short UI language.
	if lang := gjson.GetBytes(patch, "language"); lang.Exists() {
		parsed, err := campaign.ParseLanguage(lang.String())
		if err != nil {
			writeError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), "language")
			return
		}
		if patch, err = sjson.SetBytes(patch, "language", string(parsed)); err != nil {
			writeError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), "body")
			return
		}
	}
	settings, err := s.store.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// ---- shared CRUD shapes ----

func handleCreate[T any](s *Server, add func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v T
		if !decodeBody(w, r, &v) {
			return
		}
		out, err := add(r.Context(), v)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func handleGet[T any](what string, get func(string) (T, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := get(chi.URLParam(r, "id"))
		if !ok {
			notFound(w, r, what)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handlePatch[T any](s *Server, what string, update func(context.Context, string, json.RawMessage) (T, bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch, ok := readPatch(w, r)
		if !ok {
			return
		}
		v, found, err := update(r.Context(), chi.URLParam(r, "id"), patch)
		if !found {
			notFound(w, r, what)
			return
		}
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleDelete(s *Server, del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---- maps ----

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.store.Maps()))
}

func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	handleCreate(s, s.store.AddMap)(w, r)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	handleGet("map", s.store.GetMapByID)(w, r)
}

func (s *Server) handlePatchMap(w http.ResponseWriter, r *http.Request) {
	handlePatch(s, "map", s.store.UpdateMap)(w, r)
}

func (s *Server) handleDeleteMap(w http.ResponseWriter, r *http.Request) {
	handleDelete(s, s.store.DeleteMap)(w, r)
}

// ---- characters ----

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.store.Characters()))
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	handleCreate(s, s.store.AddCharacter)(w, r)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	handleGet("character", s.store.GetCharacterByID)(w, r)
}

func (s *Server) handlePatchCharacter(w http.ResponseWriter, r *http.Request) {
	handlePatch(s, "character", s.store.UpdateCharacter)(w, r)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	handleDelete(s, s.store.DeleteCharacter)(w, r)
}

type wealthResponse struct {
	CharacterID string          `json:"characterId"`
	Items       int             `json:"items"`
	Value       decimal.Decimal `json:"value"`
	Weight      decimal.Decimal `json:"weight"`
}

func (s *Server) handleCharacterWealth(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.GetCharacterByID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w, r, "character")
		return
	}
	t := c.Wealth()
	writeJSON(w, http.StatusOK, wealthResponse{
		CharacterID: c.ID,
		Items:       t.Items,
		Value:       t.Value,
		Weight:      t.Weight,
	})
}

// ---- creatures ----

func (s *Server) handleListCreatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.store.AllCreatures()))
}

func (s *Server) handleGetCreature(w http.ResponseWriter, r *http.Request) {
	handleGet("creature", s.store.GetCreatureByID)(w, r)
}

func (s *Server) handleSeedCreatures(w http.ResponseWriter, r *http.Request) {
	seeded := s.store.InitializeBaseData()
	writeJSON(w, http.StatusOK, map[string]any{
		"seeded":    seeded,
		"creatures": len(s.store.Creatures()),
	})
}

func (s *Server) handleListCustomCreatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.store.CustomCreatures()))
}

func (s *Server) handleCreateCustomCreature(w http.ResponseWriter, r *http.Request) {
	handleCreate(s, s.store.AddCustomCreature)(w, r)
}

func (s *Server) handlePatchCustomCreature(w http.ResponseWriter, r *http.Request) {
	handlePatch(s, "creature", s.store.UpdateCustomCreature)(w, r)
}

func (s *Server) handleDeleteCustomCreature(w http.ResponseWriter, r *http.Request) {
	handleDelete(s, s.store.DeleteCustomCreature)(w, r)
}

// ---- sessions ----

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newList(s.store.GameSessions()))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	handleCreate(s, s.store.AddGameSession)(w, r)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	handleGet("session", s.store.GetGameSessionByID)(w, r)
}

func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request) {
	handlePatch(s, "session", s.store.UpdateGameSession)(w, r)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	handleDelete(s, s.store.DeleteGameSession)(w, r)
}

// ---- backup files ----

// GET /api/v1/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.Filename(s.now())))
	w.WriteHeader(http.StatusOK)
	if err := s.store.Export(w); err != nil {
		s.log.WithError(err).Error("export")
	}
}

type importResponse struct {
	Imported bool            `json:"imported"`
	Counts   campaign.Counts `json:"counts"`
}

// POST /api/v1/import accepts a raw JSON body or a multipart form with the
// document in the "file" field.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, CodeValidation, "multipart field \"file\" is required", "file")
			return
		}
		defer f.Close()
		src = f
	}

	if err := s.store.Import(r.Context(), src); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: true, Counts: s.store.Counts()})
}
