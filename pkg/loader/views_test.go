package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMatviewRepository struct {
	views     []string
	refreshed []string
	failOn    map[string]error
}

func (m *mockMatviewRepository) List(ctx context.Context, schema string) ([]string, error) {
	return m.views, nil
}

func (m *mockMatviewRepository) Refresh(ctx context.Context, schema, name string) error {
	if err, ok := m.failOn[name]; ok {
		return err
	}
	m.refreshed = append(m.refreshed, name)
	return nil
}

func TestRefreshAllSkipsExcluded(t *testing.T) {
	matviews := &mockMatviewRepository{views: []string{"all_buildings", "all_services", "houses_provision"}}
	refresher := NewViewRefresher(matviews, "public", []string{"houses_provision"}, zap.NewNop())

	report, err := refresher.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"all_buildings", "all_services"}, report.Refreshed)
	assert.Equal(t, []string{"houses_provision"}, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.NotContains(t, matviews.refreshed, "houses_provision")
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	boom := errors.New("out of disk")
	matviews := &mockMatviewRepository{
		views:  []string{"all_buildings", "all_services"},
		failOn: map[string]error{"all_buildings": boom},
	}
	refresher := NewViewRefresher(matviews, "public", nil, zap.NewNop())

	report, err := refresher.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"all_services"}, report.Refreshed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "all_buildings", report.Failed[0].View)
	assert.ErrorIs(t, report.Failed[0].Err, boom)
}

func TestRefreshAllEmptyCatalog(t *testing.T) {
	refresher := NewViewRefresher(&mockMatviewRepository{}, "public", nil, zap.NewNop())

	report, err := refresher.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Refreshed)
}
