package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

// The graph operations below are the only writers of the denormalized links
// between persons and families. Every operation updates both sides of a
// link; when the second write fails the first is compensated, so a partial
// link never outlives the call that produced it.
//
// Invariants maintained here:
//   - f is in p.ParentFamilies exactly when p is in f.Children
//   - f is in p.Families exactly when p is f's father or mother
//   - families never reference a person handle that does not exist
//   - a person referenced by any family cannot be deleted

// CreatePerson mints a handle and stores a new person with empty link sets.
// The lineage flag follows gender: male members carry the blood line.
func (s *Service) CreatePerson(ctx context.Context, role Role, person *models.Person) (*models.Person, error) {
	if !role.CanModerate() {
		return nil, &PermissionError{Role: role}
	}
	if person.DisplayName == "" {
		return nil, &ValidationError{Field: "display_name", Message: "is required"}
	}
	if person.Generation <= 0 {
		return nil, &ValidationError{Field: "generation", Message: "must be a positive integer"}
	}
	if person.Gender != "" && !person.Gender.Valid() {
		return nil, &ValidationError{Field: "gender", Message: fmt.Sprintf("unknown gender %q", person.Gender)}
	}

	handle, err := s.NextPersonHandle(ctx)
	if err != nil {
		return nil, err
	}
	person.Handle = handle
	person.Families = nil
	person.ParentFamilies = nil
	person.Patrilineal = person.Gender == models.GenderMale

	created, err := s.Persons.Create(ctx, person)
	if err != nil {
		return nil, &PersistenceError{Op: "create person", Err: err}
	}
	s.logger.Infof("Created person %s (%s, generation %d)", created.Handle, created.DisplayName, created.Generation)
	return created, nil
}

// CreateFamily mints a handle and stores a new empty family.
func (s *Service) CreateFamily(ctx context.Context, role Role) (*models.Family, error) {
	if !role.CanModerate() {
		return nil, &PermissionError{Role: role}
	}
	handle, err := s.NextFamilyHandle(ctx)
	if err != nil {
		return nil, err
	}
	family, err := s.Families.Create(ctx, &models.Family{Handle: handle})
	if err != nil {
		return nil, &PersistenceError{Op: "create family", Err: err}
	}
	s.logger.Infof("Created family %s", family.Handle)
	return family, nil
}

// DeletePerson removes a person. It fails with ReferentialIntegrityError
// listing every family that still references the handle as father, mother,
// or child; only an unreferenced person can be deleted.
func (s *Service) DeletePerson(ctx context.Context, role Role, handle string) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	blocking, err := s.Families.Referencing(ctx, handle)
	if err != nil {
		return &PersistenceError{Op: "check person references", Err: err}
	}
	if len(blocking) > 0 {
		handles := make([]string, len(blocking))
		for i, f := range blocking {
			handles[i] = f.Handle
		}
		return &ReferentialIntegrityError{PersonHandle: handle, Blocking: handles}
	}

	if err := s.Persons.Delete(ctx, handle); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundOrSkipError{Message: fmt.Sprintf("person %s does not exist", handle)}
		}
		return &PersistenceError{Op: "delete person", Err: err}
	}
	s.logger.Infof("Deleted person %s", handle)
	return nil
}

// AddChildToFamily links a person as a child of a family on both sides.
// Adding an already-linked child is a no-op.
func (s *Service) AddChildToFamily(ctx context.Context, role Role, personHandle, familyHandle string) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	if err := s.requirePerson(ctx, personHandle); err != nil {
		return err
	}
	if err := s.Families.AddChild(ctx, familyHandle, personHandle); err != nil {
		return mapLinkErr(err, "family", familyHandle, "add child")
	}
	if err := s.Persons.AddParentFamily(ctx, personHandle, familyHandle); err != nil {
		// Undo the family side so the link is not left half-written.
		if undoErr := s.Families.RemoveChild(ctx, familyHandle, personHandle); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate child link %s -> %s", personHandle, familyHandle)
		}
		return mapLinkErr(err, "person", personHandle, "add parent family")
	}
	s.logger.Infof("Added child %s to family %s", personHandle, familyHandle)
	return nil
}

// RemoveChildFromFamily removes the child link on both sides.
func (s *Service) RemoveChildFromFamily(ctx context.Context, role Role, personHandle, familyHandle string) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	if err := s.Families.RemoveChild(ctx, familyHandle, personHandle); err != nil {
		return mapLinkErr(err, "family", familyHandle, "remove child")
	}
	if err := s.Persons.RemoveParentFamily(ctx, personHandle, familyHandle); err != nil {
		if undoErr := s.Families.AddChild(ctx, familyHandle, personHandle); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate child unlink %s -> %s", personHandle, familyHandle)
		}
		return mapLinkErr(err, "person", personHandle, "remove parent family")
	}
	s.logger.Infof("Removed child %s from family %s", personHandle, familyHandle)
	return nil
}

// AddSpouseToFamily places a person into the father or mother slot of a
// family and mirrors the link in the person's Families set. When the slot
// was occupied by someone else, the previous occupant's mirror entry is
// removed so invariant 2 keeps holding for both persons.
func (s *Service) AddSpouseToFamily(ctx context.Context, role Role, personHandle, familyHandle string, slot models.SpouseRole) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	if !slot.Valid() {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("unknown spouse role %q", slot)}
	}
	if err := s.requirePerson(ctx, personHandle); err != nil {
		return err
	}
	family, err := s.requireFamily(ctx, familyHandle)
	if err != nil {
		return err
	}
	previous := family.Spouse(slot)
	if previous == personHandle {
		return nil
	}

	if err := s.Families.SetSpouse(ctx, familyHandle, slot, &personHandle); err != nil {
		return mapLinkErr(err, "family", familyHandle, "set spouse")
	}
	if err := s.Persons.AddFamily(ctx, personHandle, familyHandle); err != nil {
		var restore *string
		if previous != "" {
			restore = &previous
		}
		if undoErr := s.Families.SetSpouse(ctx, familyHandle, slot, restore); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate spouse link %s -> %s", personHandle, familyHandle)
		}
		return mapLinkErr(err, "person", personHandle, "add family")
	}
	if previous != "" {
		if err := s.Persons.RemoveFamily(ctx, previous, familyHandle); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return &PersistenceError{Op: "unlink previous spouse", Err: err}
		}
	}
	s.logger.Infof("Set %s as %s of family %s", personHandle, slot, familyHandle)
	return nil
}

// RemoveSpouseFromFamily clears the slot the person occupies and removes
// the mirror entry from the person's Families set.
func (s *Service) RemoveSpouseFromFamily(ctx context.Context, role Role, personHandle, familyHandle string) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	family, err := s.requireFamily(ctx, familyHandle)
	if err != nil {
		return err
	}
	var slot models.SpouseRole
	switch personHandle {
	case family.Spouse(models.SpouseRoleFather):
		slot = models.SpouseRoleFather
	case family.Spouse(models.SpouseRoleMother):
		slot = models.SpouseRoleMother
	default:
		return &NotFoundOrSkipError{Message: fmt.Sprintf("person %s is not a spouse of family %s", personHandle, familyHandle)}
	}

	if err := s.Families.SetSpouse(ctx, familyHandle, slot, nil); err != nil {
		return mapLinkErr(err, "family", familyHandle, "clear spouse")
	}
	if err := s.Persons.RemoveFamily(ctx, personHandle, familyHandle); err != nil {
		if undoErr := s.Families.SetSpouse(ctx, familyHandle, slot, &personHandle); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate spouse unlink %s -> %s", personHandle, familyHandle)
		}
		return mapLinkErr(err, "person", personHandle, "remove family")
	}
	s.logger.Infof("Removed %s as %s of family %s", personHandle, slot, familyHandle)
	return nil
}

// MoveChildToFamily reparents a child from one family to another. The person
// side is swapped in a single write, so no reader ever sees the child
// belonging to neither family.
func (s *Service) MoveChildToFamily(ctx context.Context, role Role, childHandle, fromFamily, toFamily string) error {
	if !role.CanModerate() {
		return &PermissionError{Role: role}
	}
	if fromFamily == toFamily {
		return &ValidationError{Field: "to_family", Message: "must differ from from_family"}
	}
	child, err := s.Persons.GetByHandle(ctx, childHandle)
	if err != nil {
		return &PersistenceError{Op: "get person", Err: err}
	}
	if child == nil {
		return &NotFoundOrSkipError{Message: fmt.Sprintf("person %s does not exist", childHandle)}
	}
	if !child.InParentFamily(fromFamily) {
		return &NotFoundOrSkipError{Message: fmt.Sprintf("person %s is not a child of family %s", childHandle, fromFamily)}
	}
	if _, err := s.requireFamily(ctx, toFamily); err != nil {
		return err
	}

	if err := s.Families.AddChild(ctx, toFamily, childHandle); err != nil {
		return mapLinkErr(err, "family", toFamily, "add child")
	}
	if err := s.Persons.ReplaceParentFamily(ctx, childHandle, fromFamily, toFamily); err != nil {
		if undoErr := s.Families.RemoveChild(ctx, toFamily, childHandle); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate child move %s -> %s", childHandle, toFamily)
		}
		return mapLinkErr(err, "person", childHandle, "replace parent family")
	}
	if err := s.Families.RemoveChild(ctx, fromFamily, childHandle); err != nil {
		// Roll the move back rather than leave the child listed in both.
		if undoErr := s.Persons.ReplaceParentFamily(ctx, childHandle, toFamily, fromFamily); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate child move %s back to %s", childHandle, fromFamily)
		} else if undoErr := s.Families.RemoveChild(ctx, toFamily, childHandle); undoErr != nil {
			s.logger.WithError(undoErr).Errorf("Failed to compensate child move %s out of %s", childHandle, toFamily)
		}
		return mapLinkErr(err, "family", fromFamily, "remove child")
	}
	s.logger.Infof("Moved child %s from family %s to family %s", childHandle, fromFamily, toFamily)
	return nil
}

// CheckConsistency scans the whole graph and reports every violation of the
// link invariants at once. A nil return means the graph is consistent.
func (s *Service) CheckConsistency(ctx context.Context) error {
	persons, err := s.Persons.List(ctx)
	if err != nil {
		return &PersistenceError{Op: "list persons", Err: err}
	}
	families, err := s.Families.List(ctx)
	if err != nil {
		return &PersistenceError{Op: "list families", Err: err}
	}

	personByHandle := make(map[string]*models.Person, len(persons))
	for _, p := range persons {
		personByHandle[p.Handle] = p
	}
	familyByHandle := make(map[string]*models.Family, len(families))
	for _, f := range families {
		familyByHandle[f.Handle] = f
	}

	var violations error
	for _, f := range families {
		for _, spouse := range []string{f.Spouse(models.SpouseRoleFather), f.Spouse(models.SpouseRoleMother)} {
			if spouse == "" {
				continue
			}
			p, ok := personByHandle[spouse]
			if !ok {
				violations = collectViolations(violations, "family %s references missing person %s as spouse", f.Handle, spouse)
				continue
			}
			if !p.InFamily(f.Handle) {
				violations = collectViolations(violations, "family %s lists %s as spouse but person lacks the family link", f.Handle, spouse)
			}
		}
		for _, child := range f.Children {
			p, ok := personByHandle[child]
			if !ok {
				violations = collectViolations(violations, "family %s references missing person %s as child", f.Handle, child)
				continue
			}
			if !p.InParentFamily(f.Handle) {
				violations = collectViolations(violations, "family %s lists child %s but person lacks the parent-family link", f.Handle, child)
			}
		}
	}
	for _, p := range persons {
		for _, fh := range p.Families {
			f, ok := familyByHandle[fh]
			if !ok {
				violations = collectViolations(violations, "person %s references missing family %s", p.Handle, fh)
				continue
			}
			if !f.HasSpouse(p.Handle) {
				violations = collectViolations(violations, "person %s claims family %s but is not its father or mother", p.Handle, fh)
			}
		}
		for _, fh := range p.ParentFamilies {
			f, ok := familyByHandle[fh]
			if !ok {
				violations = collectViolations(violations, "person %s references missing parent family %s", p.Handle, fh)
				continue
			}
			if !f.HasChild(p.Handle) {
				violations = collectViolations(violations, "person %s claims parent family %s but is not among its children", p.Handle, fh)
			}
		}
	}
	return violations
}

func (s *Service) requirePerson(ctx context.Context, handle string) error {
	p, err := s.Persons.GetByHandle(ctx, handle)
	if err != nil {
		return &PersistenceError{Op: "get person", Err: err}
	}
	if p == nil {
		return &NotFoundOrSkipError{Message: fmt.Sprintf("person %s does not exist", handle)}
	}
	return nil
}

func (s *Service) requireFamily(ctx context.Context, handle string) (*models.Family, error) {
	f, err := s.Families.GetByHandle(ctx, handle)
	if err != nil {
		return nil, &PersistenceError{Op: "get family", Err: err}
	}
	if f == nil {
		return nil, &NotFoundOrSkipError{Message: fmt.Sprintf("family %s does not exist", handle)}
	}
	return f, nil
}

func mapLinkErr(err error, kind, handle, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundOrSkipError{Message: fmt.Sprintf("%s %s does not exist", kind, handle)}
	}
	return &PersistenceError{Op: op, Err: err}
}
