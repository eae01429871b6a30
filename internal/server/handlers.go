package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kyozai/toibako/internal/models"
	"github.com/kyozai/toibako/internal/search"
	"github.com/kyozai/toibako/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("text", query.Text), zap.Int("limit", query.Limit))
	response, err := s.service.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.AdvancedCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	response, err := s.service.AdvancedSearch(r.Context(), &criteria)
	if err != nil {
		s.logger.Error("advanced search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type fuzzyRequest struct {
	Text      string  `json:"text"`
	Threshold float64 `json:"threshold,omitempty"`
}

func (s *Server) handleFuzzySearch(w http.ResponseWriter, r *http.Request) {
	var req fuzzyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	response, err := s.service.FuzzySearch(r.Context(), req.Text, req.Threshold)
	if err != nil {
		s.logger.Error("fuzzy search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type tagSearchRequest struct {
	Tags     []string `json:"tags"`
	MatchAll bool     `json:"match_all,omitempty"`
}

func (s *Server) handleSearchByTags(w http.ResponseWriter, r *http.Request) {
	var req tagSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.service.SearchByTags(r.Context(), req.Tags, req.MatchAll)
	if err != nil {
		s.logger.Error("tag search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "total": len(results)})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 10)
	suggestions, err := s.service.Suggestions(r.Context(), partial, limit)
	if err != nil {
		s.logger.Error("suggestions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"popular": s.service.PopularSearches(limit)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"history": s.service.History(limit)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.service.ClearHistory()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type saveSearchRequest struct {
	Name  string             `json:"name"`
	Query models.SearchQuery `json:"query"`
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	var req saveSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.service.SaveSearch(req.Name, req.Query); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"name": req.Name, "status": "saved"})
}

func (s *Server) handleSavedList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"saved": s.service.SavedSearches()})
}

func (s *Server) handleSavedGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query, err := s.service.SavedSearch(name)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "saved search not found")
		return
	}
	s.respondJSON(w, http.StatusOK, query)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var input models.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.ApplyDefaults()
	q := &models.Question{
		ContentText:     input.ContentText,
		ContentType:     input.ContentType,
		AnswerText:      input.AnswerText,
		DifficultyLevel: input.DifficultyLevel,
		QuestionType:    input.QuestionType,
		TreeID:          input.TreeID,
		Status:          input.Status,
		Tags:            input.Tags,
	}
	if err := s.storage.CreateQuestion(r.Context(), q); err != nil {
		s.logger.Error("create question failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	q, err := s.storage.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "question not found")
			return
		}
		s.logger.Error("get question failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	if err := s.storage.DeleteQuestion(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "question not found")
			return
		}
		s.logger.Error("delete question failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	limit := queryInt(r, "limit", 10)
	results, err := s.service.SearchSimilar(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, search.ErrQuestionNotFound) {
			s.respondError(w, http.StatusNotFound, "question not found")
			return
		}
		s.logger.Error("similar search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "total": len(results)})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var filters models.Filters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.service.Filter(r.Context(), &filters)
	if err != nil {
		s.logger.Error("filter failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "total": len(results)})
}

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.service.FilterOptions(r.Context())
	if err != nil {
		s.logger.Error("filter options failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, options)
}

type importRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	report, err := s.importer.ImportFile(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("import failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.Stats())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountQuestions(r.Context())
	if err != nil {
		s.logger.Error("status: count questions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"questions":    count,
		"fts_enabled":  s.storage.HasFTS(),
		"history_size": s.config.Search.HistorySize,
	}
	if bytes, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
		resp["database_size_bytes"] = bytes
	}
	if s.watch != nil {
		resp["import_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
