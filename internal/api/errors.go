package api

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatusOf maps an engine error to an HTTP status. Access denials carry the
// organizations that would have been admitted.
func StatusOf(err error) (int, interface{}) {
	var denied *contest.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden, gin.H{"organizations": denied.Organizations}
	case errors.Is(err, contest.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, nil
	case errors.Is(err, contest.ErrAccessDenied), errors.Is(err, contest.ErrTimeLimitExceeded):
		return http.StatusForbidden, nil
	case errors.Is(err, contest.ErrNotAuthenticated):
		return http.StatusUnauthorized, nil
	case errors.Is(err, contest.ErrAlreadyInContest):
		return http.StatusConflict, nil
	case errors.Is(err, contest.ErrContestNotOngoing), errors.Is(err, contest.ErrNotInContest):
		return http.StatusBadRequest, nil
	default:
		return http.StatusInternalServerError, nil
	}
}

func Fail(c *gin.Context, err error) {
	code, data := StatusOf(err)
	util.Fail(c, code, err, data)
}
