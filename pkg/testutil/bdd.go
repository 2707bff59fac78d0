package testutil

import "testing"

// Scenario steps nest as subtests so `go test -run` can target a single
// Given/When/Then path, e.g. -run 'TestRequestAccess_Scenarios/Given_a_deactivated'.
type step func(t *testing.T, desc string, fn func(t *testing.T))

func named(prefix string) step {
	return func(t *testing.T, desc string, fn func(t *testing.T)) {
		t.Helper()
		t.Run(prefix+" "+desc, fn)
	}
}

var (
	given = named("Given")
	when  = named("When")
	then  = named("Then")
)

// Given sets up the state a scenario starts from.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	given(t, desc, fn)
}

// When performs the action under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	when(t, desc, fn)
}

// Then asserts the observable result.
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	then(t, desc, fn)
}
