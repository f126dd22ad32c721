package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository/memory"
	"github.com/dieuphamit/giapha/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := service.New(logger, nil,
		store.Persons(), store.Families(), store.Contributions(),
		store.Audit(), store.Events(), store.Posts(), store.Quiz(),
	)
	return NewServer(svc, logger)
}

// do executes a request against the server with the identity headers the
// proxy in front would attach.
func do(t *testing.T, srv *Server, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User-ID", role+"-1")
	req.Header.Set("X-User-Email", role+"@example.com")
	req.Header.Set("X-Role", role)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestContributionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// A member submits an add_person proposal.
	rec := do(t, srv, http.MethodPost, "/api/contributions", "member", map[string]any{
		"field_name": "add_person",
		"new_value":  map[string]any{"display_name": "Phạm Văn A", "generation": 3},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	submitted := decodeBody[models.Contribution](t, rec)
	require.NotEmpty(t, submitted.ID)
	assert.Equal(t, models.ContributionPending, submitted.Status)
	assert.Equal(t, "member@example.com", submitted.AuthorEmail)

	// An admin approves it.
	rec = do(t, srv, http.MethodPost, "/api/contributions/"+submitted.ID+"/review", "admin", map[string]any{
		"decision": "approved",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	reviewed := decodeBody[models.Contribution](t, rec)
	assert.Equal(t, models.ContributionApproved, reviewed.Status)
	assert.Equal(t, "admin-1", reviewed.ReviewedBy)

	// Applying creates the person.
	rec = do(t, srv, http.MethodPost, "/api/contributions/"+submitted.ID+"/apply", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.ApplyResult](t, rec)
	assert.True(t, result.OK)
	assert.Equal(t, "P001", result.InsertedID)

	rec = do(t, srv, http.MethodGet, "/api/persons/P001", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	person := decodeBody[models.Person](t, rec)
	assert.Equal(t, "Phạm Văn A", person.DisplayName)
	assert.True(t, person.IsLiving)

	// A second apply is a benign no-op.
	rec = do(t, srv, http.MethodPost, "/api/contributions/"+submitted.ID+"/apply", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeBody[service.ApplyResult](t, rec)
	assert.True(t, result.OK)
	assert.True(t, result.Skipped)

	// The decision left an audit trail.
	rec = do(t, srv, http.MethodGet, "/api/audit?entity_id="+submitted.ID, "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]models.AuditEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionApprove, entries[0].Action)
}

func TestModerationEndpointsRequireRole(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/contributions", "member", map[string]any{
		"field_name": "add_post",
		"new_value":  map[string]any{"body": "tin"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeBody[models.Contribution](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/review", "member", map[string]any{
		"decision": "approved",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/apply", "member", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/persons", "member", map[string]any{
		"display_name": "Kẻ lạ", "generation": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApplyEndpointReportsHandlerFailure(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/contributions", "member", map[string]any{
		"field_name": "add_person",
		"new_value":  map[string]any{"generation": 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeBody[models.Contribution](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/review", "admin", map[string]any{"decision": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/apply", "admin", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	result := decodeBody[service.ApplyResult](t, rec)
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "display_name")
}

func TestDirectGraphMutationsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/persons", "admin", map[string]any{
		"display_name": "Cha", "gender": "male", "generation": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	father := decodeBody[models.Person](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/persons", "admin", map[string]any{
		"display_name": "Con", "gender": "female", "generation": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	child := decodeBody[models.Person](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/families", "admin", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	family := decodeBody[models.Family](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/families/"+family.Handle+"/spouses", "admin", map[string]any{
		"person_handle": father.Handle, "role": "father",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/families/"+family.Handle+"/children", "admin", map[string]any{
		"person_handle": child.Handle,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/integrity", "admin", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deleting the linked father is refused with the blocking handle.
	rec = do(t, srv, http.MethodDelete, "/api/persons/"+father.Handle, "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Contains(t, body["error"], family.Handle)

	rec = do(t, srv, http.MethodDelete, "/api/families/"+family.Handle+"/spouses/"+father.Handle, "admin", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/persons/"+father.Handle, "admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/persons/"+father.Handle, "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPersonsSortedByName(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/persons", "admin", map[string]any{
		"display_name": "Minh", "generation": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/persons", "admin", map[string]any{
		"display_name": "An", "generation": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Default order follows handles, so insertion order wins.
	rec = do(t, srv, http.MethodGet, "/api/persons", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byHandle := decodeBody[[]models.Person](t, rec)
	require.Len(t, byHandle, 2)
	assert.Equal(t, "Minh", byHandle[0].DisplayName)

	rec = do(t, srv, http.MethodGet, "/api/persons?sort=name", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byName := decodeBody[[]models.Person](t, rec)
	require.Len(t, byName, 2)
	assert.Equal(t, "An", byName[0].DisplayName)
}

func TestListEventsUpcomingFilter(t *testing.T) {
	srv := newTestServer(t)

	for _, startAt := range []string{"2020-04-05T08:00:00Z", "2100-04-05T08:00:00Z"} {
		rec := do(t, srv, http.MethodPost, "/api/contributions", "member", map[string]any{
			"field_name": "add_event",
			"new_value":  map[string]any{"title": "Giỗ tổ", "start_at": startAt},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		c := decodeBody[models.Contribution](t, rec)
		rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/review", "admin", map[string]any{"decision": "approved"})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, srv, http.MethodPost, "/api/contributions/"+c.ID+"/apply", "admin", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/events", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[[]models.Event](t, rec)
	require.Len(t, all, 2)

	rec = do(t, srv, http.MethodGet, "/api/events?upcoming=true", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decodeBody[[]models.Event](t, rec)
	require.Len(t, upcoming, 1)
	assert.Equal(t, 2100, upcoming[0].StartAt.Year())
}

func TestListEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/contributions", "member", map[string]any{
		"field_name": "add_post",
		"new_value":  map[string]any{"body": "tin"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeBody[models.Contribution](t, rec)

	rec = do(t, srv, http.MethodGet, "/api/contributions?status=pending", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeBody[[]models.Contribution](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/contributions?status=approved", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decodeBody[[]models.Contribution](t, rec)
	assert.Empty(t, approved)

	rec = do(t, srv, http.MethodGet, "/api/events", "member", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/posts", "member", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/quiz", "member", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
