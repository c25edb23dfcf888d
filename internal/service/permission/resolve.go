package permission

import "github.com/heartmarshall/chatbot-backend/internal/domain"

// Source says which rule produced an effective state.
type Source string

const (
	SourceOverride Source = "override"
	SourceImplied  Source = "implied"
	SourceDefault  Source = "default"
	// SourceUnknown is reported for permission ids missing from the snapshot. They are denied.
	SourceUnknown Source = "unknown"
)

// Effective is the resolved state of one permission for one user.
type Effective struct {
	State  domain.PermissionState
	Source Source
	// Via is the allow-overridden permission that implies this one. Set only for SourceImplied.
	Via int32
}

// Effective resolves permID for userID: an explicit override wins, then a grant
// implied by any allow override the user holds, then the permission default.
func (g *Graph) Effective(userID, permID int32) Effective {
	if state, ok := g.overrides[userID][permID]; ok {
		return Effective{State: state, Source: SourceOverride}
	}
	if via, ok := g.implied[userID][permID]; ok {
		return Effective{State: domain.PermissionAllow, Source: SourceImplied, Via: via}
	}
	p, ok := g.perms[permID]
	if !ok {
		return Effective{State: domain.PermissionDeny, Source: SourceUnknown}
	}
	return Effective{State: p.DefaultState, Source: SourceDefault}
}

// Decision is the verdict for a set of required permissions.
type Decision struct {
	Allowed bool
	// DeniedPermission is the first required permission that resolved to deny.
	DeniedPermission int32
	Source           Source
}

// Resolve authorizes userID iff every required permission resolves to allow.
// An empty set is always allowed. userID 0 means an unknown sender with no overrides.
func Resolve(g *Graph, userID int32, required []int32) Decision {
	for _, permID := range required {
		eff := g.Effective(userID, permID)
		if eff.State != domain.PermissionAllow {
			return Decision{DeniedPermission: permID, Source: eff.Source}
		}
	}
	return Decision{Allowed: true}
}

// Has reports whether userID holds the permission named name.
// Unknown names are not held.
func (g *Graph) Has(userID int32, name string) bool {
	p, ok := g.PermissionByName(name)
	if !ok {
		return false
	}
	return g.Effective(userID, p.ID).State == domain.PermissionAllow
}
