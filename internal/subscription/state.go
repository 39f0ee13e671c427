package subscription

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// State is the device's view of the user's entitlement. It is persisted as a
// whole and replaced, never merged.
type State struct {
	IsPro          bool       `json:"isPro"`
	Plan           *dto.Plan  `json:"plan"`
	Status         Status     `json:"status"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	LastVerifiedAt *time.Time `json:"lastVerifiedAt,omitempty"`
}

func FreeState() State {
	return State{Status: StatusNone}
}

// Normalize re-derives IsPro from Status and ExpiresAt at now. An active or
// cancelled state whose expiry has passed becomes expired with no plan; the
// second result reports that downgrade.
func (s State) Normalize(now time.Time) (State, bool) {
	switch s.Status {
	case StatusActive, StatusCancelled:
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			return State{
				IsPro:          false,
				Plan:           nil,
				Status:         StatusExpired,
				LastVerifiedAt: s.LastVerifiedAt,
			}, true
		}
		s.IsPro = true
	case "":
		s.Status = StatusNone
		s.IsPro = false
	default:
		s.IsPro = false
	}
	return s, false
}

// Entitled reports whether s grants Pro access at now.
func (s State) Entitled(now time.Time) bool {
	n, _ := s.Normalize(now)
	return n.IsPro
}

func fromRemote(remote *dto.SubscriptionStatusResponse) State {
	return State{
		IsPro:     remote.IsPro,
		Plan:      remote.Plan,
		Status:    Status(remote.Status),
		ExpiresAt: remote.ExpiresAt,
	}
}
