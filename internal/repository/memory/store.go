// Package memory provides an in-memory implementation of the repository
// interfaces, used by the test suite and for ephemeral runs without a
// database. Semantics mirror the Postgres implementations: lookups return
// nil, nil for missing rows, zero-row writes return repository.ErrNotFound,
// link appends are idempotent, and the contribution claim is a single
// compare-and-set under the store lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

// Store holds all collections behind one lock.
type Store struct {
	mu            sync.RWMutex
	persons       map[string]*models.Person
	families      map[string]*models.Family
	contributions map[string]*models.Contribution
	audit         []*models.AuditEntry
	events        []*models.Event
	posts         []*models.Post
	quiz          []*models.QuizQuestion

	auditSeq atomic.Int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		persons:       make(map[string]*models.Person),
		families:      make(map[string]*models.Family),
		contributions: make(map[string]*models.Contribution),
	}
}

// Persons returns the store's person repository.
func (s *Store) Persons() repository.PersonRepository { return (*personStore)(s) }

// Families returns the store's family repository.
func (s *Store) Families() repository.FamilyRepository { return (*familyStore)(s) }

// Contributions returns the store's contribution repository.
func (s *Store) Contributions() repository.ContributionRepository { return (*contributionStore)(s) }

// Audit returns the store's audit repository.
func (s *Store) Audit() repository.AuditRepository { return (*auditStore)(s) }

// Events returns the store's event repository.
func (s *Store) Events() repository.EventRepository { return (*eventStore)(s) }

// Posts returns the store's post repository.
func (s *Store) Posts() repository.PostRepository { return (*postStore)(s) }

// Quiz returns the store's quiz repository.
func (s *Store) Quiz() repository.QuizRepository { return (*quizStore)(s) }

type (
	personStore       Store
	familyStore       Store
	contributionStore Store
	auditStore        Store
	eventStore        Store
	postStore         Store
	quizStore         Store
)

var (
	_ repository.PersonRepository       = (*personStore)(nil)
	_ repository.FamilyRepository       = (*familyStore)(nil)
	_ repository.ContributionRepository = (*contributionStore)(nil)
	_ repository.AuditRepository        = (*auditStore)(nil)
	_ repository.EventRepository        = (*eventStore)(nil)
	_ repository.PostRepository         = (*postStore)(nil)
	_ repository.QuizRepository         = (*quizStore)(nil)
)

// ---------------------------------------------------------------------------
// Persons
// ---------------------------------------------------------------------------

func (s *personStore) Create(_ context.Context, person *models.Person) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	person.CreatedAt = now
	person.UpdatedAt = now
	if person.Gender == "" {
		person.Gender = models.GenderUnknown
	}
	person.SyncYears()

	s.persons[person.Handle] = clonePerson(person)
	return person, nil
}

func (s *personStore) GetByHandle(_ context.Context, handle string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[handle]
	if !ok {
		return nil, nil
	}
	return clonePerson(p), nil
}

func (s *personStore) List(_ context.Context) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	persons := make([]*models.Person, 0, len(s.persons))
	for _, p := range s.persons {
		persons = append(persons, clonePerson(p))
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i].Handle < persons[j].Handle })
	return persons, nil
}

func (s *personStore) Handles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handles := make([]string, 0, len(s.persons))
	for h := range s.persons {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles, nil
}

func (s *personStore) UpdateField(_ context.Context, handle, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[handle]
	if !ok {
		return repository.ErrNotFound
	}
	if err := setPersonColumn(p, column, value); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *personStore) AddFamily(_ context.Context, personHandle, familyHandle string) error {
	return (*Store)(s).updatePerson(personHandle, func(p *models.Person) {
		p.Families = appendAbsent(p.Families, familyHandle)
	})
}

func (s *personStore) RemoveFamily(_ context.Context, personHandle, familyHandle string) error {
	return (*Store)(s).updatePerson(personHandle, func(p *models.Person) {
		p.Families = removeAll(p.Families, familyHandle)
	})
}

func (s *personStore) AddParentFamily(_ context.Context, personHandle, familyHandle string) error {
	return (*Store)(s).updatePerson(personHandle, func(p *models.Person) {
		p.ParentFamilies = appendAbsent(p.ParentFamilies, familyHandle)
	})
}

func (s *personStore) RemoveParentFamily(_ context.Context, personHandle, familyHandle string) error {
	return (*Store)(s).updatePerson(personHandle, func(p *models.Person) {
		p.ParentFamilies = removeAll(p.ParentFamilies, familyHandle)
	})
}

// ReplaceParentFamily mirrors the conditional swap of the SQL store: when
// toFamily is already listed the fromFamily entry is removed instead, so the
// list stays duplicate-free.
func (s *personStore) ReplaceParentFamily(_ context.Context, personHandle, fromFamily, toFamily string) error {
	return (*Store)(s).updatePerson(personHandle, func(p *models.Person) {
		for _, h := range p.ParentFamilies {
			if h == toFamily {
				p.ParentFamilies = removeAll(p.ParentFamilies, fromFamily)
				return
			}
		}
		for i, h := range p.ParentFamilies {
			if h == fromFamily {
				p.ParentFamilies[i] = toFamily
			}
		}
	})
}

func (s *personStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[handle]; !ok {
		return repository.ErrNotFound
	}
	delete(s.persons, handle)
	return nil
}

func (s *Store) updatePerson(handle string, fn func(*models.Person)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[handle]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// Families
// ---------------------------------------------------------------------------

func (s *familyStore) Create(_ context.Context, family *models.Family) (*models.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	family.CreatedAt = now
	family.UpdatedAt = now
	s.families[family.Handle] = cloneFamily(family)
	return family, nil
}

func (s *familyStore) GetByHandle(_ context.Context, handle string) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[handle]
	if !ok {
		return nil, nil
	}
	return cloneFamily(f), nil
}

func (s *familyStore) List(_ context.Context) ([]*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	families := make([]*models.Family, 0, len(s.families))
	for _, f := range s.families {
		families = append(families, cloneFamily(f))
	}
	sort.Slice(families, func(i, j int) bool { return families[i].Handle < families[j].Handle })
	return families, nil
}

func (s *familyStore) Handles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handles := make([]string, 0, len(s.families))
	for h := range s.families {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles, nil
}

func (s *familyStore) AddChild(_ context.Context, familyHandle, childHandle string) error {
	return (*Store)(s).updateFamily(familyHandle, func(f *models.Family) {
		f.Children = appendAbsent(f.Children, childHandle)
	})
}

func (s *familyStore) RemoveChild(_ context.Context, familyHandle, childHandle string) error {
	return (*Store)(s).updateFamily(familyHandle, func(f *models.Family) {
		f.Children = removeAll(f.Children, childHandle)
	})
}

func (s *familyStore) SetSpouse(_ context.Context, familyHandle string, role models.SpouseRole, personHandle *string) error {
	if !role.Valid() {
		return repository.ErrNotFound
	}
	var handle *string
	if personHandle != nil {
		h := *personHandle
		handle = &h
	}
	return (*Store)(s).updateFamily(familyHandle, func(f *models.Family) {
		if role == models.SpouseRoleFather {
			f.FatherHandle = handle
		} else {
			f.MotherHandle = handle
		}
	})
}

func (s *familyStore) Referencing(_ context.Context, personHandle string) ([]*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var families []*models.Family
	for _, f := range s.families {
		if f.References(personHandle) {
			families = append(families, cloneFamily(f))
		}
	}
	sort.Slice(families, func(i, j int) bool { return families[i].Handle < families[j].Handle })
	return families, nil
}

func (s *familyStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[handle]; !ok {
		return repository.ErrNotFound
	}
	delete(s.families, handle)
	return nil
}

func (s *Store) updateFamily(handle string, fn func(*models.Family)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.families[handle]
	if !ok {
		return repository.ErrNotFound
	}
	fn(f)
	f.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// Contributions
// ---------------------------------------------------------------------------

func (s *contributionStore) Create(_ context.Context, c *models.Contribution) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.ContributionPending
	}
	c.CreatedAt = time.Now()
	s.contributions[c.ID] = cloneContribution(c)
	return c, nil
}

func (s *contributionStore) GetByID(_ context.Context, id string) (*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributions[id]
	if !ok {
		return nil, nil
	}
	return cloneContribution(c), nil
}

func (s *contributionStore) List(_ context.Context, filters repository.ContributionFilters) ([]*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var contributions []*models.Contribution
	for _, c := range s.contributions {
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		contributions = append(contributions, cloneContribution(c))
	}
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].CreatedAt.After(contributions[j].CreatedAt)
	})
	if filters.Offset > 0 {
		if filters.Offset >= len(contributions) {
			return nil, nil
		}
		contributions = contributions[filters.Offset:]
	}
	if filters.Limit > 0 && len(contributions) > filters.Limit {
		contributions = contributions[:filters.Limit]
	}
	return contributions, nil
}

func (s *contributionStore) SetReview(_ context.Context, id string, status models.ContributionStatus, reviewedBy, adminNote string, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok || c.AppliedAt != nil {
		return repository.ErrNotFound
	}
	c.Status = status
	c.ReviewedBy = reviewedBy
	c.AdminNote = adminNote
	t := reviewedAt
	c.ReviewedAt = &t
	return nil
}

// ClaimForApply performs the approved-and-unapplied compare-and-set under
// the store lock, matching the conditional UPDATE of the SQL store.
func (s *contributionStore) ClaimForApply(_ context.Context, id string, appliedAt time.Time) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok || c.Status != models.ContributionApproved || c.AppliedAt != nil {
		return nil, nil
	}
	t := appliedAt
	c.AppliedAt = &t
	return cloneContribution(c), nil
}

func (s *contributionStore) ReleaseClaim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.AppliedAt = nil
	return nil
}

// ---------------------------------------------------------------------------
// Audit and side collections
// ---------------------------------------------------------------------------

func (s *auditStore) Append(_ context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.auditSeq.Inc()
	entry.CreatedAt = time.Now()
	s.audit = append(s.audit, cloneAuditEntry(entry))
	return entry, nil
}

func (s *auditStore) List(_ context.Context, filters repository.AuditFilters) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []*models.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if filters.EntityType != "" && e.EntityType != filters.EntityType {
			continue
		}
		if filters.EntityID != "" && e.EntityID != filters.EntityID {
			continue
		}
		entries = append(entries, cloneAuditEntry(e))
		if filters.Limit > 0 && len(entries) >= filters.Limit {
			break
		}
	}
	return entries, nil
}

// AuditLen reports the number of audit rows appended so far.
func (s *Store) AuditLen() int64 {
	return s.auditSeq.Load()
}

func (s *eventStore) Create(_ context.Context, event *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now()
	e := *event
	s.events = append(s.events, &e)
	return event, nil
}

func (s *eventStore) List(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		c := *e
		events = append(events, &c)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartAt.Before(events[j].StartAt) })
	return events, nil
}

func (s *postStore) Create(_ context.Context, post *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = time.Now()
	p := *post
	s.posts = append(s.posts, &p)
	return post, nil
}

func (s *postStore) List(_ context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]*models.Post, 0, len(s.posts))
	for i := len(s.posts) - 1; i >= 0; i-- {
		c := *s.posts[i]
		posts = append(posts, &c)
	}
	return posts, nil
}

func (s *quizStore) Create(_ context.Context, q *models.QuizQuestion) (*models.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now()
	c := *q
	s.quiz = append(s.quiz, &c)
	return q, nil
}

func (s *quizStore) List(_ context.Context) ([]*models.QuizQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]*models.QuizQuestion, 0, len(s.quiz))
	for i := len(s.quiz) - 1; i >= 0; i-- {
		c := *s.quiz[i]
		questions = append(questions, &c)
	}
	return questions, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func appendAbsent(handles []string, handle string) []string {
	for _, h := range handles {
		if h == handle {
			return handles
		}
	}
	return append(handles, handle)
}

func removeAll(handles []string, handle string) []string {
	out := handles[:0]
	for _, h := range handles {
		if h != handle {
			out = append(out, h)
		}
	}
	return out
}

func clonePerson(p *models.Person) *models.Person {
	c := *p
	c.Families = append([]string(nil), p.Families...)
	c.ParentFamilies = append([]string(nil), p.ParentFamilies...)
	c.BirthDate = cloneTime(p.BirthDate)
	c.DeathDate = cloneTime(p.DeathDate)
	c.BirthYear = cloneInt(p.BirthYear)
	c.DeathYear = cloneInt(p.DeathYear)
	return &c
}

func cloneFamily(f *models.Family) *models.Family {
	c := *f
	c.Children = append([]string(nil), f.Children...)
	if f.FatherHandle != nil {
		h := *f.FatherHandle
		c.FatherHandle = &h
	}
	if f.MotherHandle != nil {
		h := *f.MotherHandle
		c.MotherHandle = &h
	}
	return &c
}

func cloneContribution(c *models.Contribution) *models.Contribution {
	out := *c
	out.NewValue = append([]byte(nil), c.NewValue...)
	out.ReviewedAt = cloneTime(c.ReviewedAt)
	out.AppliedAt = cloneTime(c.AppliedAt)
	return &out
}

func cloneAuditEntry(e *models.AuditEntry) *models.AuditEntry {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
