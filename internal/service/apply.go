package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

// ApplyResult is the structured outcome of an apply call. Skipped marks the
// benign no-op taken when the contribution was not in the applicable state
// (missing, unreviewed, rejected, or already applied).
type ApplyResult struct {
	OK         bool   `json:"ok"`
	Skipped    bool   `json:"skipped,omitempty"`
	InsertedID string `json:"inserted_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ApplyContribution turns an approved contribution into the actual graph
// mutation, at most once.
//
// The sequence is: role check before any storage access; an atomic claim
// that stamps AppliedAt only on an approved, unapplied row (two racing
// callers cannot both win); exhaustive dispatch on the typed payload; and on
// success one audit entry. A handler failure releases the claim so a
// corrected retry stays possible, and returns a structured error result —
// no handler error or panic crosses this boundary uncaught.
func (s *Service) ApplyContribution(ctx context.Context, role Role, actorID, id string) (result ApplyResult, err error) {
	if !role.CanModerate() {
		perr := &PermissionError{Role: role}
		return ApplyResult{Error: perr.Error()}, perr
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Panic applying contribution %s: %v", id, r)
			s.releaseClaim(ctx, id)
			applyTotal.WithLabelValues("failed").Inc()
			result = ApplyResult{Error: "internal error"}
			err = fmt.Errorf("internal error applying contribution %s", id)
		}
	}()

	c, claimErr := s.Contributions.ClaimForApply(ctx, id, time.Now())
	if claimErr != nil {
		perr := &PersistenceError{Op: "claim contribution", Err: claimErr}
		applyTotal.WithLabelValues("failed").Inc()
		return ApplyResult{Error: perr.Error()}, perr
	}
	if c == nil {
		s.logger.Infof("Contribution %s not applicable, skipping", id)
		applyTotal.WithLabelValues("skipped").Inc()
		return ApplyResult{OK: true, Skipped: true}, nil
	}

	insertedID, applyErr := s.dispatch(ctx, role, c)
	if applyErr != nil {
		s.releaseClaim(ctx, id)
		if IsSkip(applyErr) {
			s.logger.Infof("Contribution %s targets a missing record: %v", id, applyErr)
			applyTotal.WithLabelValues("skipped").Inc()
			return ApplyResult{OK: true, Skipped: true}, nil
		}
		s.logger.WithError(applyErr).Warnf("Failed to apply contribution %s", id)
		applyTotal.WithLabelValues("failed").Inc()
		return ApplyResult{Error: applyErr.Error()}, applyErr
	}

	s.auditApply(ctx, actorID, c, insertedID)
	applyTotal.WithLabelValues("applied").Inc()
	s.logger.Infof("Applied contribution %s (%s), inserted=%s", c.ID, c.FieldName, insertedID)
	return ApplyResult{OK: true, InsertedID: insertedID}, nil
}

// dispatch routes the contribution to its type-specific handler. The payload
// union is closed, so this switch covers every kind; DecodePayload already
// rejected unknown discriminators.
func (s *Service) dispatch(ctx context.Context, role Role, c *models.Contribution) (string, error) {
	payload, err := c.DecodePayload()
	if err != nil {
		return "", &ValidationError{Field: "new_value", Message: err.Error()}
	}
	switch p := payload.(type) {
	case *models.AddPersonPayload:
		return s.applyAddPerson(ctx, role, c, p)
	case *models.DeletePersonPayload:
		return "", s.applyDeletePerson(ctx, role, c)
	case *models.EditPersonFieldPayload:
		return "", s.applyEditPersonField(ctx, c, p)
	case *models.AddEventPayload:
		return s.applyAddEvent(ctx, c, p)
	case *models.AddPostPayload:
		return s.applyAddPost(ctx, c, p)
	case *models.AddQuizQuestionPayload:
		return s.applyAddQuizQuestion(ctx, c, p)
	default:
		return "", &ValidationError{Field: "field_name", Message: fmt.Sprintf("unhandled payload type %T", payload)}
	}
}

func (s *Service) applyAddPerson(ctx context.Context, role Role, c *models.Contribution, p *models.AddPersonPayload) (string, error) {
	person := &models.Person{
		DisplayName:    p.DisplayName,
		Gender:         p.Gender,
		Generation:     p.Generation,
		BirthDate:      p.BirthDate,
		DeathDate:      p.DeathDate,
		IsLiving:       true,
		Occupation:     p.Occupation,
		CurrentAddress: p.CurrentAddress,
		Phone:          p.Phone,
		Email:          p.Email,
	}
	if p.IsLiving != nil {
		person.IsLiving = *p.IsLiving
	}
	if p.SpouseHandle != "" {
		if err := s.requirePerson(ctx, p.SpouseHandle); err != nil {
			return "", err
		}
	}

	created, err := s.CreatePerson(ctx, role, person)
	if err != nil {
		return "", err
	}

	if p.SpouseHandle != "" {
		family, err := s.CreateFamily(ctx, role)
		if err != nil {
			return "", err
		}
		slot := models.SpouseRoleMother
		if created.Gender == models.GenderMale {
			slot = models.SpouseRoleFather
		}
		other := models.SpouseRoleFather
		if slot == models.SpouseRoleFather {
			other = models.SpouseRoleMother
		}
		if err := s.AddSpouseToFamily(ctx, role, created.Handle, family.Handle, slot); err != nil {
			return "", err
		}
		if err := s.AddSpouseToFamily(ctx, role, p.SpouseHandle, family.Handle, other); err != nil {
			return "", err
		}
	}
	return created.Handle, nil
}

func (s *Service) applyDeletePerson(ctx context.Context, role Role, c *models.Contribution) error {
	if c.PersonHandle == "" {
		return &ValidationError{Field: "person_handle", Message: "is required for delete_person"}
	}
	return s.DeletePerson(ctx, role, c.PersonHandle)
}

func (s *Service) applyEditPersonField(ctx context.Context, c *models.Contribution, p *models.EditPersonFieldPayload) error {
	if c.PersonHandle == "" {
		return &ValidationError{Field: "person_handle", Message: "is required for edit_person_field"}
	}
	if p.DBColumn == "" {
		return &ValidationError{Field: "db_column", Message: "is required"}
	}
	coerce, ok := editableColumns[p.DBColumn]
	if !ok {
		return &ValidationError{Field: "db_column", Message: fmt.Sprintf("column %q is not editable", p.DBColumn)}
	}
	value, err := coerce(p.Value)
	if err != nil {
		return &ValidationError{Field: p.DBColumn, Message: err.Error()}
	}
	if err := s.requirePerson(ctx, c.PersonHandle); err != nil {
		return err
	}
	if err := s.Persons.UpdateField(ctx, c.PersonHandle, p.DBColumn, value); err != nil {
		return mapLinkErr(err, "person", c.PersonHandle, "update field")
	}
	// The legacy year columns track the full dates.
	if yearColumn, ok := derivedYearColumns[p.DBColumn]; ok {
		if t, ok := value.(time.Time); ok {
			if err := s.Persons.UpdateField(ctx, c.PersonHandle, yearColumn, t.Year()); err != nil {
				return mapLinkErr(err, "person", c.PersonHandle, "sync year column")
			}
		}
	}
	return nil
}

func (s *Service) applyAddEvent(ctx context.Context, c *models.Contribution, p *models.AddEventPayload) (string, error) {
	if p.Title == "" {
		return "", &ValidationError{Field: "title", Message: "is required"}
	}
	if p.StartAt.IsZero() {
		return "", &ValidationError{Field: "start_at", Message: "is required"}
	}
	event, err := s.Events.Create(ctx, &models.Event{
		Title:       p.Title,
		StartAt:     p.StartAt,
		Description: p.Description,
		Location:    p.Location,
		Type:        p.Type,
		CreatedByID: c.AuthorID,
	})
	if err != nil {
		return "", &PersistenceError{Op: "create event", Err: err}
	}
	return event.ID, nil
}

func (s *Service) applyAddPost(ctx context.Context, c *models.Contribution, p *models.AddPostPayload) (string, error) {
	if p.Body == "" {
		return "", &ValidationError{Field: "body", Message: "is required"}
	}
	post, err := s.Posts.Create(ctx, &models.Post{
		Title:       p.Title,
		Body:        p.Body,
		CreatedByID: c.AuthorID,
	})
	if err != nil {
		return "", &PersistenceError{Op: "create post", Err: err}
	}
	return post.ID, nil
}

func (s *Service) applyAddQuizQuestion(ctx context.Context, c *models.Contribution, p *models.AddQuizQuestionPayload) (string, error) {
	if p.Question == "" {
		return "", &ValidationError{Field: "question", Message: "is required"}
	}
	if p.CorrectAnswer == "" {
		return "", &ValidationError{Field: "correct_answer", Message: "is required"}
	}
	q, err := s.Quiz.Create(ctx, &models.QuizQuestion{
		Question:      p.Question,
		CorrectAnswer: p.CorrectAnswer,
		Hint:          p.Hint,
		CreatedByID:   c.AuthorID,
	})
	if err != nil {
		return "", &PersistenceError{Op: "create quiz question", Err: err}
	}
	return q.ID, nil
}

// auditApply writes the single audit row for a successfully applied
// contribution. The mutation already happened, so an audit failure is
// logged rather than used to release the claim — releasing here would let
// the mutation run twice.
func (s *Service) auditApply(ctx context.Context, actorID string, c *models.Contribution, insertedID string) {
	metadata := map[string]string{
		"field_name":    string(c.FieldName),
		"person_handle": c.PersonHandle,
		"author_email":  c.AuthorEmail,
	}
	if insertedID != "" {
		metadata["inserted_id"] = insertedID
	}
	_, err := s.Audit.Append(ctx, &models.AuditEntry{
		ActorID:    actorID,
		Action:     models.AuditActionApprove,
		EntityType: "contribution",
		EntityID:   c.ID,
		EntityName: c.PersonName,
		Metadata:   metadata,
	})
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to write audit entry for contribution %s", c.ID)
	}
}

func (s *Service) releaseClaim(ctx context.Context, id string) {
	if err := s.Contributions.ReleaseClaim(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).Errorf("Failed to release claim on contribution %s", id)
	}
}

// columnCoercer converts the free-form string value of an edit_person_field
// payload into the column's storage type.
type columnCoercer func(value string) (any, error)

func stringColumn(value string) (any, error) { return value, nil }

func boolColumn(value string) (any, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("expects a boolean, got %q", value)
	}
	return b, nil
}

func yearColumn(value string) (any, error) {
	y, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("expects a year number, got %q", value)
	}
	return y, nil
}

func dateColumn(value string) (any, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("expects a date (YYYY-MM-DD), got %q", value)
	}
	return t, nil
}

// editableColumns is the allow-list for edit_person_field. Any column
// outside this map is rejected before a single write happens.
var editableColumns = map[string]columnCoercer{
	"display_name":    stringColumn,
	"surname":         stringColumn,
	"given_name":      stringColumn,
	"nickname":        stringColumn,
	"birth_date":      dateColumn,
	"death_date":      dateColumn,
	"birth_year":      yearColumn,
	"death_year":      yearColumn,
	"is_living":       boolColumn,
	"occupation":      stringColumn,
	"employer":        stringColumn,
	"education":       stringColumn,
	"phone":           stringColumn,
	"email":           stringColumn,
	"zalo":            stringColumn,
	"hometown":        stringColumn,
	"current_address": stringColumn,
	"biography":       stringColumn,
	"notes":           stringColumn,
}

// derivedYearColumns maps a date column to the legacy year column kept in
// sync with it.
var derivedYearColumns = map[string]string{
	"birth_date": "birth_year",
	"death_date": "death_year",
}
