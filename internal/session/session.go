// Package session carries the identity of whoever is calling the service.
package session

import (
	"context"

	"github.com/Koyo-os/survey-service/internal/entity"
)

// Role decides which survey operations a session may perform
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCreator    Role = "creator"
	RoleRespondent Role = "respondent"
)

// Session is passed explicitly to every service call. A zero UserID means anonymous.
type Session struct {
	UserID string
	Role   Role
	Email  string
}

// Anonymous is the session of an unauthenticated caller
func Anonymous() Session {
	return Session{Role: RoleRespondent}
}

// FromActor converts the actor of a bus request into a session
func FromActor(a entity.Actor) Session {
	return Session{UserID: a.UserID, Role: ParseRole(a.Role)}
}

// ParseRole maps an untrusted role string to a known role; unknown roles get
// the least privileged one
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleAdmin, RoleCreator, RoleRespondent:
		return r
	}
	return RoleRespondent
}

func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Role == RoleAdmin
}

// CanAuthor reports whether the session may create surveys
func (s Session) CanAuthor() bool {
	return s.IsAuthenticated() && (s.Role == RoleCreator || s.Role == RoleAdmin)
}

type ctxKey struct{}

// NewContext stores s in ctx for handlers further down the chain
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by NewContext, or an anonymous one
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}
