package contest

import (
	"errors"
	"fmt"

	"github.com/ZJUSCT/CSRank/internal/database/models"
)

var (
	ErrNotFound          = errors.New("no such contest")
	ErrAccessDenied      = errors.New("access to contest denied")
	ErrAlreadyInContest  = errors.New("already in a contest")
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	ErrNotInContest      = errors.New("not in contest")
	ErrContestNotOngoing = errors.New("contest not ongoing")
	ErrNotAuthenticated  = errors.New("authentication required")

	// ErrConflict is returned by stores when an insert hits a uniqueness
	// constraint. It is retried internally and never reaches callers.
	ErrConflict = errors.New("uniqueness conflict")
)

// NotFoundError hides whether the contest exists at all.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return "could not find such contest"
	}
	return fmt.Sprintf("could not find a contest with the key %q", e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AccessDeniedError carries what a caller needs to explain the denial.
type AccessDeniedError struct {
	Name          string
	Organizations []models.Organization
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to contest %q denied", e.Name)
}

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

type AlreadyInContestError struct {
	Current string
}

func (e *AlreadyInContestError) Error() string {
	return fmt.Sprintf("you are already in a contest: %q", e.Current)
}

func (e *AlreadyInContestError) Is(target error) bool { return target == ErrAlreadyInContest }

func NotFound(key string) error {
	return &NotFoundError{Key: key}
}
