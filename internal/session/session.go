// Package session resolves who is calling: the owner of a tenant (bearer token present)
// or an anonymous guest on a public storefront.
package session

import (
	"errors"
	"time"
)

// Caller is either Owner or Guest.
type Caller interface {
	TenantID() int64
	isCaller()
}

type Owner struct {
	Tenant int64
	UserID string
	Role   string
}

func (o Owner) TenantID() int64 { return o.Tenant }
func (Owner) isCaller()         {}

// Guest.Tenant is zero when the page did not say which store is shown.
type Guest struct {
	Tenant int64
}

func (g Guest) TenantID() int64 { return g.Tenant }
func (Guest) isCaller()         {}

// Session is resolved once per page load and passed explicitly to components.
type Session struct {
	Caller Caller
	Token  string
	// ViewTenant is the storefront being displayed: the public tenant when the page
	// names one, otherwise the owner's own store.
	ViewTenant int64
}

func (s Session) IsAuthenticated() bool {
	_, ok := s.Caller.(Owner)
	return ok
}

func (s Session) Owner() (Owner, bool) {
	o, ok := s.Caller.(Owner)
	return o, ok
}

// TenantID is the tenant catalog requests go to; ok is false in the "not ready" state.
func (s Session) TenantID() (int64, bool) {
	return s.ViewTenant, s.ViewTenant > 0
}

// CanEdit reports whether the caller owns the storefront on display.
func (s Session) CanEdit() bool {
	o, ok := s.Owner()
	return ok && o.Tenant > 0 && o.Tenant == s.ViewTenant
}

// Anonymous returns a guest session bound to publicTenantID (zero for none).
func Anonymous(publicTenantID int64) Session {
	return Session{Caller: Guest{Tenant: publicTenantID}, ViewTenant: publicTenantID}
}

// Resolve builds the session for a page. A token that cannot be used yields a guest
// session together with the reason, which the caller should log.
func Resolve(token string, publicTenantID int64, now time.Time) (Session, error) {
	if token == "" {
		return Anonymous(publicTenantID), nil
	}
	claims, err := DecodeClaims(token)
	if err == nil {
		err = claims.Check(now)
	}
	if err != nil {
		return Anonymous(publicTenantID), err
	}
	owner := Owner{Tenant: claims.TenantID, UserID: claims.Subject, Role: claims.Role}
	view := publicTenantID
	if view <= 0 {
		view = owner.Tenant
	}
	return Session{Caller: owner, Token: token, ViewTenant: view}, nil
}

var ErrNoTenantClaim = errors.New("token has no tenant_id claim")
