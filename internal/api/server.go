package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
	"github.com/dieuphamit/giapha/internal/service"
)

// Server provides the HTTP JSON API.
//
// The caller's identity and role arrive resolved in the X-User-ID,
// X-User-Email, and X-Role headers — session handling lives in front of
// this service. The role is passed explicitly into every service call.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Contributions
	s.mux.HandleFunc("POST /api/contributions", s.handleSubmitContribution)
	s.mux.HandleFunc("GET /api/contributions", s.handleListContributions)
	s.mux.HandleFunc("POST /api/contributions/{id}/review", s.handleReviewContribution)
	s.mux.HandleFunc("POST /api/contributions/{id}/apply", s.handleApplyContribution)

	// Graph reads
	s.mux.HandleFunc("GET /api/persons", s.handleListPersons)
	s.mux.HandleFunc("GET /api/persons/{handle}", s.handleGetPerson)
	s.mux.HandleFunc("GET /api/families", s.handleListFamilies)
	s.mux.HandleFunc("GET /api/families/{handle}", s.handleGetFamily)
	s.mux.HandleFunc("GET /api/integrity", s.handleCheckIntegrity)

	// Direct graph mutations for the interactive add-member flow; these run
	// through the same link maintenance as the apply pipeline.
	s.mux.HandleFunc("POST /api/persons", s.handleCreatePerson)
	s.mux.HandleFunc("DELETE /api/persons/{handle}", s.handleDeletePerson)
	s.mux.HandleFunc("POST /api/persons/{handle}/move", s.handleMoveChild)
	s.mux.HandleFunc("POST /api/families", s.handleCreateFamily)
	s.mux.HandleFunc("POST /api/families/{handle}/children", s.handleAddChild)
	s.mux.HandleFunc("DELETE /api/families/{handle}/children/{person}", s.handleRemoveChild)
	s.mux.HandleFunc("POST /api/families/{handle}/spouses", s.handleAddSpouse)
	s.mux.HandleFunc("DELETE /api/families/{handle}/spouses/{person}", s.handleRemoveSpouse)

	// Side collections and audit
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("GET /api/posts", s.handleListPosts)
	s.mux.HandleFunc("GET /api/quiz", s.handleListQuiz)
	s.mux.HandleFunc("GET /api/audit", s.handleListAudit)

	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Validation and integrity failures surface their actionable message;
// permission and storage failures stay opaque beyond the category.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsPermission(err):
		s.respondError(w, http.StatusForbidden, "permission denied")
	case service.IsValidation(err), service.IsIntegrity(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case service.IsSkip(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.WithError(err).Error("internal error")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// caller extracts the externally resolved identity headers.
func caller(r *http.Request) (userID, email string, role service.Role) {
	return r.Header.Get("X-User-ID"), r.Header.Get("X-User-Email"), service.Role(r.Header.Get("X-Role"))
}

// ---------------------------------------------------------------------------
// Contributions
// ---------------------------------------------------------------------------

func (s *Server) handleSubmitContribution(w http.ResponseWriter, r *http.Request) {
	userID, email, _ := caller(r)
	var req struct {
		FieldName    models.ContributionKind `json:"field_name"`
		NewValue     json.RawMessage         `json:"new_value"`
		PersonHandle string                  `json:"person_handle"`
		PersonName   string                  `json:"person_name"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := s.svc.SubmitContribution(r.Context(), &models.Contribution{
		AuthorID:     userID,
		AuthorEmail:  email,
		FieldName:    req.FieldName,
		NewValue:     req.NewValue,
		PersonHandle: req.PersonHandle,
		PersonName:   req.PersonName,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	filters := repository.ContributionFilters{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ContributionStatus(raw)
		filters.Status = &status
	}
	contributions, err := s.svc.ListContributions(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contributions)
}

func (s *Server) handleReviewContribution(w http.ResponseWriter, r *http.Request) {
	userID, _, role := caller(r)
	var req struct {
		Decision  models.ContributionStatus `json:"decision"`
		AdminNote string                    `json:"admin_note"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	c, err := s.svc.ReviewContribution(r.Context(), role, r.PathValue("id"), req.Decision, userID, req.AdminNote)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleApplyContribution(w http.ResponseWriter, r *http.Request) {
	userID, _, role := caller(r)
	result, err := s.svc.ApplyContribution(r.Context(), role, userID, r.PathValue("id"))
	if err != nil {
		if service.IsPermission(err) {
			s.respondError(w, http.StatusForbidden, "permission denied")
			return
		}
		// The structured result already names the failure.
		s.respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// ---------------------------------------------------------------------------
// Graph reads
// ---------------------------------------------------------------------------

func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := s.svc.Persons.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	// Default order is by handle; ?sort=name orders alphabetically.
	if r.URL.Query().Get("sort") == "name" {
		sort.Slice(persons, func(i, j int) bool { return persons[i].SortName() < persons[j].SortName() })
	}
	s.respondJSON(w, http.StatusOK, persons)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := s.svc.Persons.GetByHandle(r.Context(), r.PathValue("handle"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if person == nil {
		s.respondError(w, http.StatusNotFound, "person not found")
		return
	}
	s.respondJSON(w, http.StatusOK, person)
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := s.svc.Families.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, families)
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := s.svc.Families.GetByHandle(r.Context(), r.PathValue("handle"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if family == nil {
		s.respondError(w, http.StatusNotFound, "family not found")
		return
	}
	s.respondJSON(w, http.StatusOK, family)
}

func (s *Server) handleCheckIntegrity(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CheckConsistency(r.Context()); err != nil {
		s.respondJSON(w, http.StatusConflict, map[string]string{"status": "inconsistent", "detail": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "consistent"})
}

// ---------------------------------------------------------------------------
// Direct graph mutations
// ---------------------------------------------------------------------------

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	var req struct {
		DisplayName string        `json:"display_name"`
		Gender      models.Gender `json:"gender"`
		Generation  int           `json:"generation"`
		BirthDate   *time.Time    `json:"birth_date"`
		IsLiving    *bool         `json:"is_living"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	person := &models.Person{
		DisplayName: req.DisplayName,
		Gender:      req.Gender,
		Generation:  req.Generation,
		BirthDate:   req.BirthDate,
		IsLiving:    true,
	}
	if req.IsLiving != nil {
		person.IsLiving = *req.IsLiving
	}
	created, err := s.svc.CreatePerson(r.Context(), role, person)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	if err := s.svc.DeletePerson(r.Context(), role, r.PathValue("handle")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	family, err := s.svc.CreateFamily(r.Context(), role)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, family)
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	var req struct {
		PersonHandle string `json:"person_handle"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.svc.AddChildToFamily(r.Context(), role, req.PersonHandle, r.PathValue("handle")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveChild(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	if err := s.svc.RemoveChildFromFamily(r.Context(), role, r.PathValue("person"), r.PathValue("handle")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddSpouse(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	var req struct {
		PersonHandle string            `json:"person_handle"`
		Role         models.SpouseRole `json:"role"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.svc.AddSpouseToFamily(r.Context(), role, req.PersonHandle, r.PathValue("handle"), req.Role); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveSpouse(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	if err := s.svc.RemoveSpouseFromFamily(r.Context(), role, r.PathValue("person"), r.PathValue("handle")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMoveChild(w http.ResponseWriter, r *http.Request) {
	_, _, role := caller(r)
	var req struct {
		FromFamily string `json:"from_family"`
		ToFamily   string `json:"to_family"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.svc.MoveChildToFamily(r.Context(), role, r.PathValue("handle"), req.FromFamily, req.ToFamily); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Side collections and audit
// ---------------------------------------------------------------------------

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if r.URL.Query().Get("upcoming") == "true" {
		upcoming := events[:0]
		for _, e := range events {
			if e.IsUpcoming() {
				upcoming = append(upcoming, e)
			}
		}
		events = upcoming
	}
	s.respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Posts.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, posts)
}

func (s *Server) handleListQuiz(w http.ResponseWriter, r *http.Request) {
	questions, err := s.svc.Quiz.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, questions)
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	filters := repository.AuditFilters{
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
	}
	entries, err := s.svc.Audit.List(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}
