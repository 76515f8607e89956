package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

func TestImportLocations_PerRowFailures(t *testing.T) {
	f := newCatalogFixture(t)
	csv := strings.Join([]string{
		"Name,Slug,Type,ZoneSlug,Description,Address",
		"Hotel Nuevo,hotel-nuevo,hotel,z2,Beachfront,Av. España 1",
		"Hotel-ABC renamed,hotel-abc,HOTEL,z2,,",
		",missing-name,HOTEL,z2,,",
		"Dup,hotel-nuevo,HOTEL,z2,,",
		"Lost,lost-hotel,HOTEL,atlantis,,",
		"Beach,beach-club,BEACH,z2,,",
		"No Zone,no-zone,PLACE,,,",
	}, "\n")

	result, err := f.catalog.ImportLocations(context.Background(), strings.NewReader(csv), "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, 1, result.UpdatedCount)
	require.Len(t, result.Failures, 5)

	rows := make(map[int]ImportFailure)
	for _, fail := range result.Failures {
		rows[fail.Row] = fail
	}
	assert.Contains(t, rows[4].Reason, "missing required fields")
	assert.Contains(t, rows[5].Reason, "duplicate slug")
	assert.Equal(t, "hotel-nuevo", rows[5].Slug)
	assert.Contains(t, rows[6].Reason, "atlantis")
	assert.Contains(t, rows[7].Reason, "invalid location type")
	assert.Contains(t, rows[8].Reason, "no fallback zone")

	loc, err := f.store.Locations().FindBySlug(context.Background(), "hotel-nuevo")
	require.NoError(t, err)
	assert.Equal(t, f.z2.ID, loc.ZoneID())
	assert.Equal(t, "Av. España 1", loc.Address())

	renamed, err := f.store.Locations().FindBySlug(context.Background(), "hotel-abc")
	require.NoError(t, err)
	assert.Equal(t, "Hotel-ABC renamed", renamed.Name())
}

func TestImportLocations_FallbackZone(t *testing.T) {
	f := newCatalogFixture(t)
	csv := "name,slug,type\nMarina,marina,PLACE\nCortecito,cortecito,place\n"

	result, err := f.catalog.ImportLocations(context.Background(), strings.NewReader(csv), f.z3.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Empty(t, result.Failures)

	loc, err := f.store.Locations().FindBySlug(context.Background(), "cortecito")
	require.NoError(t, err)
	assert.Equal(t, f.z3.ID, loc.ZoneID())
}

func TestImportLocations_RejectsBadFiles(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	for name, tc := range map[string]struct {
		csv      string
		fallback string
	}{
		"empty":            {csv: "", fallback: ""},
		"missing headers":  {csv: "name,slug\nA,a\n", fallback: f.z1.ID},
		"no zone column":   {csv: "name,slug,type\nA,a,HOTEL\n", fallback: ""},
		"unknown fallback": {csv: "name,slug,type\nA,a,HOTEL\n", fallback: "nope"},
		"header only":      {csv: "name,slug,type\n", fallback: f.z1.ID},
		"blank lines only": {csv: "name,slug,type,zoneSlug\n\n\n", fallback: ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.catalog.ImportLocations(ctx, strings.NewReader(tc.csv), tc.fallback)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestImportLocations_InvalidatesCacheOnlyOnChange(t *testing.T) {
	f := newCatalogFixture(t)
	before := f.store.Invalidations

	_, err := f.catalog.ImportLocations(context.Background(), strings.NewReader("name,slug,type,zoneSlug\n,,,\n"), "")
	require.NoError(t, err)
	assert.Equal(t, before, f.store.Invalidations)

	_, err = f.catalog.ImportLocations(context.Background(), strings.NewReader("name,slug,type,zoneSlug\nA,a-place,PLACE,z1\n"), "")
	require.NoError(t, err)
	assert.Equal(t, before+1, f.store.Invalidations)
}
