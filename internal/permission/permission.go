// Package permission holds the object-level access rules shared by handlers and services.
package permission

import (
	"net/http"

	"github.com/pageza/foodgram/backend/internal/models"
)

// Action classifies a request as reading or changing state.
type Action int

const (
	Read Action = iota
	Write
)

// ActionFor maps an HTTP method to an Action. GET, HEAD and OPTIONS are reads.
func ActionFor(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	default:
		return Write
	}
}

// Requester identifies who is making a request. The zero value is anonymous.
type Requester struct {
	ID            uint
	Role          models.Role
	Authenticated bool
}

// User builds an authenticated requester.
func User(id uint, role models.Role) Requester {
	return Requester{ID: id, Role: role, Authenticated: true}
}

// IsAdmin reports whether the requester may bypass ownership checks.
func (r Requester) IsAdmin() bool {
	if !r.Authenticated {
		return false
	}
	switch r.Role {
	case models.RoleAdmin:
		return true
	default:
		return false
	}
}

// CurrentUserOrAdminOrReadOnly guards profile-style objects whose own id is the owner.
func CurrentUserOrAdminOrReadOnly(action Action, r Requester, targetID uint) bool {
	if action == Read {
		return true
	}
	return r.Authenticated && (r.IsAdmin() || r.ID == targetID)
}

// AuthenticatedOrReadOnly is the collection-level half of the authored-object rule.
func AuthenticatedOrReadOnly(action Action, r Requester) bool {
	return action == Read || r.Authenticated
}

// OwnerOrAdminOrReadOnly guards authored objects such as recipes.
func OwnerOrAdminOrReadOnly(action Action, r Requester, authorID uint) bool {
	if action == Read {
		return true
	}
	return r.Authenticated && (r.IsAdmin() || r.ID == authorID)
}
