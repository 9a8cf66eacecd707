package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varscope/internal/ir"
)

func TestSnapshot_OmitsTimings(t *testing.T) {
	result := sampleResult()
	result.Steps[0].Trace.Steps[0].ExecutionTime = 42

	snap := Snapshot("sample", result)
	data, err := ir.MarshalCanonical(snap)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"scenario_name":"sample"`)
	assert.Contains(t, s, `{"depth":1,"n":1,"name":"url","type":"cache_miss"}`)
	assert.Contains(t, s, `{"depth":1,"error_code":"UNDEFINED_VARIABLE","n":1,"name":"missing","type":"variable"}`)
	assert.Contains(t, s, `"errors":[{"code":"UNDEFINED_VARIABLE","name":"missing"}]`)
	assert.NotContains(t, s, "execution_time")
	assert.NotContains(t, s, "start_time")
}

func TestSnapshot_DigestChangesWithBehavior(t *testing.T) {
	a := sampleResult()
	b := sampleResult()

	da, err := ir.TraceDigest(Snapshot("sample", a))
	require.NoError(t, err)
	db, err := ir.TraceDigest(Snapshot("sample", b))
	require.NoError(t, err)
	assert.Equal(t, da, db)

	b.Steps[0].Value = "other"
	db, err = ir.TraceDigest(Snapshot("sample", b))
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestCanonicalJSONDeterminism(t *testing.T) {
	scenario := mustParse(t, validScenario)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := ir.MarshalCanonical(Snapshot(scenario.Name, result))
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		assert.Equal(t, string(first), string(data), "run %d differs", i)
	}
}

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"profile_override", "unresolved_references"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(scenarioPath(name))
			require.NoError(t, err)

			// Regenerate with:
			//   go test ./internal/harness -run TestRunWithGolden_Scenarios -update
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario(scenarioPath("unresolved_references"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "unresolved_references", result))
}
