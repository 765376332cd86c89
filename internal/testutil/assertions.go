package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitDone(name string) string {
	return fmt.Sprintf(`msg="executor: unit done." unit=%s `, name)
}

// AssertUnitRan checks the log output within a HarnessResult to confirm that
// the named unit was evaluated exactly times times.
func AssertUnitRan(t *testing.T, result *HarnessResult, name string, times int) {
	t.Helper()

	got := strings.Count(result.LogOutput, unitDone(name))
	require.Equal(t, times, got, "unexpected number of evaluations of unit %q", name)
}

// AssertUnitNotRan checks that the named unit was never evaluated.
func AssertUnitNotRan(t *testing.T, result *HarnessResult, name string) {
	t.Helper()
	AssertUnitRan(t, result, name, 0)
}
