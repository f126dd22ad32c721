package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	personHandlePrefix = "P"
	familyHandlePrefix = "F"
	handleWidth        = 3
)

// NextPersonHandle mints the next person handle: it scans existing handles
// for the "P" prefix, takes the highest numeric suffix (0 when the store is
// empty), increments, and zero-pads to three digits (P001, P002, ...).
// Handles are never reused; a deleted person leaves a permanent gap.
//
// Two concurrent callers can mint the same handle — the scan and the later
// insert are separate operations. Callers that create persons concurrently
// must serialize externally.
func (s *Service) NextPersonHandle(ctx context.Context) (string, error) {
	handles, err := s.Persons.Handles(ctx)
	if err != nil {
		return "", &PersistenceError{Op: "list person handles", Err: err}
	}
	return nextHandle(personHandlePrefix, handles), nil
}

// NextFamilyHandle mints the next family handle (F001, F002, ...). Same
// contract and same concurrency caveat as NextPersonHandle.
func (s *Service) NextFamilyHandle(ctx context.Context) (string, error) {
	handles, err := s.Families.Handles(ctx)
	if err != nil {
		return "", &PersistenceError{Op: "list family handles", Err: err}
	}
	return nextHandle(familyHandlePrefix, handles), nil
}

func nextHandle(prefix string, existing []string) string {
	max := 0
	for _, h := range existing {
		suffix, ok := strings.CutPrefix(h, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= max {
			continue
		}
		max = n
	}
	return fmt.Sprintf("%s%0*d", prefix, handleWidth, max+1)
}
