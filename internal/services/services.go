// Package services is the boundary between transport and storage. Every
// operation takes the caller's session explicitly and checks ownership
// before reading or mutating a record.
package services

import (
	"fmt"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/session"
)

var timeNow = time.Now

// owned hides records of other users behind the same NotFound an absent
// record produces.
func owned(sess session.Session, ownerID int64, what string, id int64) error {
	if sess.UserID == 0 {
		return core.ErrUnauthenticated
	}
	if ownerID != sess.UserID {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func requireSession(sess session.Session) error {
	if sess.UserID == 0 {
		return core.ErrUnauthenticated
	}
	return nil
}
