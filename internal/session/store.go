package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNotFound is returned when no session exists for a user.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by Save when the stored version moved on.
	ErrConflict = errors.New("session version conflict")
)

// DefaultSaveAttempts bounds the retries of SaveMerged and Update.
const DefaultSaveAttempts = 3

// Store persists sessions keyed by user id.
//
// Save is a compare-and-swap on Version: a session with Version 0 may only be
// inserted, any other version must match the stored one. On success the
// store bumps Version on the passed session.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, userID int64) error
}

// Load returns the stored session for userID, or a fresh one if none exists.
func Load(ctx context.Context, store Store, userID int64) (*Session, error) {
	s, err := store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveMerged saves s, resolving version conflicts by folding the notified
// ids of the newer stored record into s and retrying. Every other field of s
// wins. A record deleted in the meantime is recreated.
func SaveMerged(ctx context.Context, store Store, s *Session) error {
	var err error
	for range DefaultSaveAttempts {
		err = store.Save(ctx, s)
		if !errors.Is(err, ErrConflict) {
			return err
		}

		latest, getErr := store.Get(ctx, s.UserID)
		switch {
		case errors.Is(getErr, ErrNotFound):
			s.Version = 0
		case getErr != nil:
			return fmt.Errorf("failed to reload session %d: %w", s.UserID, getErr)
		default:
			s.MarkNotified(latest.NotifiedIDs...)
			s.Version = latest.Version
		}
	}
	return fmt.Errorf("failed to save session %d after %d attempts: %w", s.UserID, DefaultSaveAttempts, err)
}

// Update runs a short get, mutate, save cycle against the stored record,
// retrying from a fresh read on conflict. It returns ErrNotFound without
// calling mutate when the record is gone.
func Update(ctx context.Context, store Store, userID int64, mutate func(*Session) error) error {
	var err error
	for range DefaultSaveAttempts {
		var s *Session
		s, err = store.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err = mutate(s); err != nil {
			return err
		}
		err = store.Save(ctx, s)
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("failed to update session %d after %d attempts: %w", userID, DefaultSaveAttempts, err)
}

func sortByUser(sessions []*Session) {
	slices.SortFunc(sessions, func(a, b *Session) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
}
