package filters

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	values := url.Values{}
	values.Add("zone_id", "3")
	values.Add("zone_id", "1")
	values.Add("street_id", "7")
	values.Set("date_from", "2026-08-01T00:00:00Z")
	values.Set("date_to", "2026-08-31T00:00:00Z")

	fs := Parse(values)
	require.Equal(t, []int64{1, 3}, fs.ZoneIDs)
	require.Equal(t, []int64{7}, fs.StreetIDs)
	require.Empty(t, fs.UnitIDs)

	encoded := fs.Encode()
	assert.Equal(t, []string{"1", "3"}, encoded["zone_id"])
	assert.Equal(t, "2026-08-01T00:00:00Z", encoded.Get("date_from"))
}

func TestParseDropsMalformedValues(t *testing.T) {
	values := url.Values{}
	values.Add("zone_id", "abc")
	values.Add("zone_id", "-4")
	values.Add("zone_id", "2")
	values.Add("zone_id", "2")
	values.Set("date_from", "yesterday")

	fs := Parse(values)
	assert.Equal(t, []int64{2}, fs.ZoneIDs)
	assert.True(t, fs.DateFrom.IsZero())
}

func TestAppliedSetUnaffectedByLaterDraftEdits(t *testing.T) {
	draft := FilterSet{ZoneIDs: []int64{1, 2}}
	applied := draft.Clone()

	draft.ZoneIDs[0] = 99
	draft.StreetIDs = append(draft.StreetIDs, 5)

	assert.Equal(t, []int64{1, 2}, applied.ZoneIDs)
	assert.Empty(t, applied.StreetIDs)
}

func TestEqualComparesScopes(t *testing.T) {
	a := FilterSet{ZoneIDs: []int64{2}, StreetIDs: []int64{10}}
	b := FilterSet{ZoneIDs: []int64{2}, StreetIDs: []int64{10}}
	assert.True(t, a.Equal(b))

	c := FilterSet{ZoneIDs: []int64{2}}
	assert.False(t, a.Equal(c))
}

func TestCascadeClearsOrphanedSelections(t *testing.T) {
	tree := OptionTree{
		StreetParents: map[int64]int64{10: 1, 11: 2},
		UnitParents:   map[int64]int64{100: 10, 101: 11},
	}

	fs := FilterSet{
		ZoneIDs:   []int64{1},
		StreetIDs: []int64{10, 11},
		UnitIDs:   []int64{100, 101},
	}

	out := fs.Cascade(tree)
	assert.Equal(t, []int64{10}, out.StreetIDs, "street under zone 2 must be cleared")
	assert.Equal(t, []int64{100}, out.UnitIDs, "unit under removed street must be cleared")
}

func TestCascadeKeepsAllWhenNoParentSelected(t *testing.T) {
	tree := OptionTree{
		StreetParents: map[int64]int64{10: 1, 11: 2},
		UnitParents:   map[int64]int64{100: 10},
	}
	fs := FilterSet{StreetIDs: []int64{10, 11}}
	out := fs.Cascade(tree)
	assert.Equal(t, []int64{10, 11}, out.StreetIDs)
}

func TestWithDefaultRangeOnlyFillsEmptyBounds(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	empty := FilterSet{}.WithDefaultRange(now, 30*24*time.Hour)
	assert.Equal(t, now, empty.DateTo)
	assert.Equal(t, now.AddDate(0, 0, -30), empty.DateFrom)

	explicit := FilterSet{DateFrom: now.AddDate(0, -2, 0), DateTo: now}
	kept := explicit.WithDefaultRange(now, 30*24*time.Hour)
	assert.Equal(t, explicit.DateFrom, kept.DateFrom)
}

func TestQuickRangeWindow(t *testing.T) {
	window, ok := QuickRangeWindow("7d")
	require.True(t, ok)
	assert.Equal(t, 7*24*time.Hour, window)

	_, ok = QuickRangeWindow("90d")
	assert.False(t, ok)
}
