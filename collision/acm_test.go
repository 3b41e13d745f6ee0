package collision

import (
	"testing"

	"go.viam.com/test"
)

func TestACMDefaultsToFalse(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	test.That(t, acm.Allowed("a", "b"), test.ShouldBeFalse)
	test.That(t, acm.Allowed("a", "a"), test.ShouldBeFalse)
}

func TestACMSymmetric(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	acm.SetEntry("a", "b", true)
	test.That(t, acm.Allowed("a", "b"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("b", "a"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("a", "c"), test.ShouldBeFalse)

	acm.SetEntry("b", "a", false)
	test.That(t, acm.Allowed("a", "b"), test.ShouldBeFalse)
}

func TestACMIdempotent(t *testing.T) {
	// Setting an allowed pair twice is equivalent to setting it once.
	once := NewAllowedCollisionMatrix()
	once.SetEntry("a", "b", true)
	twice := NewAllowedCollisionMatrix()
	twice.SetEntry("a", "b", true)
	twice.SetEntry("a", "b", true)
	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}, {"a", "c"}} {
		test.That(t, once.Allowed(pair[0], pair[1]), test.ShouldEqual, twice.Allowed(pair[0], pair[1]))
	}
}

func TestACMAlwaysAllowed(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	acm.SetAlwaysAllowed("base")
	test.That(t, acm.Allowed("base", "anything"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("anything", "base"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("anything", "other"), test.ShouldBeFalse)
}
