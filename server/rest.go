package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"personakit/core"
	"personakit/tasks"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, v)
}

type createCharacterRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	character, err := s.characters.CreateCharacter(r.Context(), req.Title, req.Description)
	if err != nil {
		log.Error().Err(err).Msg("create character failed")
		writeError(w, http.StatusInternalServerError, "could not create character")
		return
	}

	// Post-creation processing is best effort; the character is already
	// persisted, so an enqueue failure must not fail the request.
	if s.queue != nil {
		job := tasks.ProcessCharacterJob{
			CharacterID: character.ID,
			Title:       character.Title,
			Description: character.Description,
		}
		if err := s.queue.EnqueueProcessCharacter(job); err != nil {
			log.Error().Err(err).Int64("character_id", character.ID).Msg("enqueue character processing failed")
		}
	}

	writeJSON(w, http.StatusCreated, character)
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	characters, err := s.characters.ListCharacters(r.Context(), skip, limit)
	if err != nil {
		log.Error().Err(err).Msg("list characters failed")
		writeError(w, http.StatusInternalServerError, "could not list characters")
		return
	}
	if characters == nil {
		characters = []core.Character{}
	}
	writeJSON(w, http.StatusOK, characters)
}

type chatRequest struct {
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	reply := s.router.Reply(r.Context(), core.Identity(req.UserID), req.Content)
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("signup failed")
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	if user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user_id": user.ID,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := s.users.UserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("username", username).Msg("get user failed")
		writeError(w, http.StatusInternalServerError, "could not fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
