package importer

import (
	"errors"
	"fmt"
)

// AlreadyImportedError reports a duplicate import attempt. PostID
// identifies the conflicting post so the caller can link to it; it is
// zero only when the winning post could not be looked up after a
// commit-time conflict.
type AlreadyImportedError struct {
	PostID  int64
	Subject string
}

func (e *AlreadyImportedError) Error() string {
	if e.PostID == 0 {
		return fmt.Sprintf("thread %q is already imported", e.Subject)
	}
	return fmt.Sprintf("thread %q is already imported as post %d", e.Subject, e.PostID)
}

// ErrSubjectConflict is returned by stores when the subject uniqueness
// index rejects a commit. The pre-persistence duplicate check cannot
// close the race between two concurrent imports of the same thread;
// the index can, and the coordinator converts its rejection into the
// same AlreadyImportedError the pre-check raises.
var ErrSubjectConflict = errors.New("post subject already exists")
