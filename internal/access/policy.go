// Package access decides which survey operations a session may perform.
package access

import (
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
)

// IsOwner reports whether s created the survey
func IsOwner(s session.Session, survey *entity.Survey) bool {
	return s.IsAuthenticated() && survey.CreatorID == s.UserID
}

// CanEdit covers updates and question moves: creator, collaborator or admin
func CanEdit(s session.Session, survey *entity.Survey) bool {
	return s.IsAdmin() || IsOwner(s, survey) || (s.IsAuthenticated() && survey.IsCollaborator(s.UserID))
}

// CanList reports whether survey shows up in the listing for s
func CanList(s session.Session, survey *entity.Survey, now time.Time) bool {
	if survey.IsPublic && !survey.IsExpired(now) {
		return true
	}
	return IsOwner(s, survey) || (s.IsAuthenticated() && survey.IsCollaborator(s.UserID))
}

// CanView reports whether s may fetch the survey definition. Private surveys
// stay readable for their editors; expired public ones stay readable so the
// respondent learns why submission fails.
func CanView(s session.Session, survey *entity.Survey) bool {
	return survey.IsPublic || CanEdit(s, survey)
}

// CanTake reports whether s may submit a response now
func CanTake(s session.Session, survey *entity.Survey, now time.Time) error {
	if !CanView(s, survey) {
		return entity.ErrForbidden
	}
	if survey.IsExpired(now) {
		return entity.ErrSurveyExpired
	}
	if !survey.Settings.AllowAnonymous && !s.IsAuthenticated() {
		return entity.ErrUnauthenticated
	}
	return nil
}

// CanCreate reports whether s may author new surveys
func CanCreate(s session.Session) bool {
	return s.CanAuthor()
}

// CanDelete is reserved to the creator and admins
func CanDelete(s session.Session, survey *entity.Survey) bool {
	return s.IsAdmin() || IsOwner(s, survey)
}

// CanAddCollaborator is reserved to the creator
func CanAddCollaborator(s session.Session, survey *entity.Survey) bool {
	return IsOwner(s, survey)
}

// CanViewResults covers the raw response listing
func CanViewResults(s session.Session, survey *entity.Survey) bool {
	return CanEdit(s, survey)
}

// CanViewAnalytics lets anyone see aggregated figures once the survey shares
// its results and has at least one response
func CanViewAnalytics(s session.Session, survey *entity.Survey, responses int) bool {
	if CanEdit(s, survey) {
		return true
	}
	return CanView(s, survey) && survey.Settings.ShowResults && responses > 0
}
