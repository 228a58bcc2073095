package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// RunGolden runs every scenario under dir as a subtest and compares the
// converged output against testdata/golden/<name>.golden.
func RunGolden(t *testing.T, dir string) {
	t.Helper()

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err, "load scenarios")
	require.NotEmpty(t, scenarios, "no scenarios in %s", dir)

	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			res, err := Run(s)
			require.NoError(t, err, s.Description)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, s.Name, res.Output)
		})
	}
}
