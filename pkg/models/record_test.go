package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReportCounts(t *testing.T) {
	report := &LoadReport{}
	report.Add(RowResult{Index: 0, Outcome: OutcomeCreated})
	report.Add(RowResult{Index: 1, Outcome: OutcomeUpdated})
	report.Add(RowResult{Index: 2, Outcome: OutcomeUnchanged})
	report.Add(RowResult{Index: 3, Outcome: OutcomeSkipped})
	report.Add(RowResult{Index: 4, Outcome: OutcomeRejected})
	report.Add(RowResult{Index: 5, Outcome: OutcomeCreated})

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Rejected)
	assert.Len(t, report.Results, 6)
}

func TestPropertiesValueNil(t *testing.T) {
	var p Properties
	v, err := p.Value()
	assert.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestServiceTypeCapacity(t *testing.T) {
	st := &ServiceType{CapacityMin: 100, CapacityMax: 1000}

	assert.Equal(t, 550, st.DefaultCapacity())
	assert.True(t, st.CapacityWithinBounds(100))
	assert.True(t, st.CapacityWithinBounds(1000))
	assert.False(t, st.CapacityWithinBounds(99))
	assert.False(t, st.CapacityWithinBounds(1001))
}
