package collision

// AllowedCollisionMatrix records which pairs of links are exempt from self-collision
// checking, plus a set of links that are always allowed to touch anything, used for entities
// in permanent contact with the robot base. Entries are symmetric and default to false.
// An ACM may be shared between checker instances once callers stop mutating it.
type AllowedCollisionMatrix struct {
	entries map[acmKey]bool
	always  map[string]bool
}

type acmKey struct {
	a, b string
}

func orderedKey(a, b string) acmKey {
	if b < a {
		a, b = b, a
	}
	return acmKey{a, b}
}

// NewAllowedCollisionMatrix returns an empty matrix: nothing is allowed to collide.
func NewAllowedCollisionMatrix() *AllowedCollisionMatrix {
	return &AllowedCollisionMatrix{
		entries: make(map[acmKey]bool),
		always:  make(map[string]bool),
	}
}

// SetEntry records whether the pair may touch without being a collision. The entry is
// symmetric and setting it repeatedly is equivalent to setting it once.
func (acm *AllowedCollisionMatrix) SetEntry(a, b string, allowed bool) {
	acm.entries[orderedKey(a, b)] = allowed
}

// SetAlwaysAllowed marks a link as exempt from self-collision against everything.
func (acm *AllowedCollisionMatrix) SetAlwaysAllowed(name string) {
	acm.always[name] = true
}

// Allowed reports whether the pair is exempt from self-collision.
func (acm *AllowedCollisionMatrix) Allowed(a, b string) bool {
	if acm.always[a] || acm.always[b] {
		return true
	}
	return acm.entries[orderedKey(a, b)]
}
