package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkCalculations_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind WorkCalculationsKind
		wantRaw  string
	}{
		{name: "null", input: `null`, wantKind: WorkCalculationsAbsent},
		{name: "object", input: `{"screen":{"points":2,"total_quantity":30,"total_work":60}}`, wantKind: WorkCalculationsParsed},
		{name: "serialized string", input: `"{\"dtf\":{\"total_work\":120}}"`, wantKind: WorkCalculationsRaw, wantRaw: `{"dtf":{"total_work":120}}`},
		{name: "wrong shape kept verbatim", input: `{"screen":"lots"}`, wantKind: WorkCalculationsRaw, wantRaw: `{"screen":"lots"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w WorkCalculations
			require.NoError(t, json.Unmarshal([]byte(tt.input), &w))
			assert.Equal(t, tt.wantKind, w.Kind)
			if tt.wantRaw != "" {
				assert.Equal(t, tt.wantRaw, w.Raw)
			}
		})
	}
}

func TestWorkCalculations_Resolve(t *testing.T) {
	t.Run("raw payload is decoded", func(t *testing.T) {
		m, err := RawWorkCalculations(`{"dtf":{"total_work":120}}`).Resolve()
		require.NoError(t, err)
		assert.Equal(t, 120, m[ProductionTypeDTF].TotalWork)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := RawWorkCalculations("{not json").Resolve()
		assert.ErrorIs(t, err, ErrMalformedWorkCalculations)
	})

	t.Run("absent payload", func(t *testing.T) {
		m, err := WorkCalculations{}.Resolve()
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestProductionJob_JSON(t *testing.T) {
	data := []byte(`{
		"id": "42",
		"status": "in_progress",
		"production_type": "screen",
		"work_calculations": "{\"screen\":{\"total_work\":60}}"
	}`)

	var job ProductionJob
	require.NoError(t, json.Unmarshal(data, &job))
	assert.Equal(t, JobStatusInProgress, job.Status)
	assert.Equal(t, WorkCalculationsRaw, job.WorkCalculations.Kind)

	out, err := json.Marshal(ProductionJob{
		ID:               "42",
		Status:           JobStatusPending,
		ProductionType:   ProductionTypeDTF,
		WorkCalculations: ParsedWorkCalculations(map[ProductionType]WorkCalc{ProductionTypeDTF: NewWorkCalc(4, 5)}),
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"work_calculations":{"dtf":{"points":4,"total_quantity":5,"total_work":20}}`)
}

func TestParseEnums(t *testing.T) {
	_, err := ParseJobStatus("done")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	s, err := ParseJobStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, s)

	_, err = ParseProductionType("vinyl")
	assert.ErrorIs(t, err, ErrInvalidProductionType)

	pt, err := ParseProductionType("embroidery")
	require.NoError(t, err)
	assert.Equal(t, ProductionTypeEmbroidery, pt)
}
