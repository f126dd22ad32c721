package service

import (
	"github.com/sirupsen/logrus"

	"github.com/dieuphamit/giapha/internal/notify"
	"github.com/dieuphamit/giapha/internal/repository"
)

// Role is the caller's resolved capability. Resolution (sessions, tokens)
// happens outside this core; every mutating operation takes the role as an
// explicit argument and never reads it from ambient state.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleMember Role = "member"
)

// CanModerate reports whether the role may review and apply contributions
// and perform direct graph mutations.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleEditor
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	logger   *logrus.Logger
	notifier notify.Notifier

	Persons       repository.PersonRepository
	Families      repository.FamilyRepository
	Contributions repository.ContributionRepository
	Audit         repository.AuditRepository
	Events        repository.EventRepository
	Posts         repository.PostRepository
	Quiz          repository.QuizRepository
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, notifier notify.Notifier,
	persons repository.PersonRepository,
	families repository.FamilyRepository,
	contributions repository.ContributionRepository,
	audit repository.AuditRepository,
	events repository.EventRepository,
	posts repository.PostRepository,
	quiz repository.QuizRepository,
) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		logger: logger, notifier: notifier,
		Persons: persons, Families: families, Contributions: contributions,
		Audit: audit, Events: events, Posts: posts, Quiz: quiz,
	}
}
