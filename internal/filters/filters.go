// Package filters models the applied filter set shared by the dashboard,
// report and master-data views. A filter set becomes "applied" by being
// encoded into the page URL; the form on the page only edits a draft and
// never mutates an applied set in place.
package filters

import (
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Date format accepted on the query string and forwarded to the SLA API.
const dateParamLayout = time.RFC3339

// FilterSet is the scope every data fetch is keyed by.
type FilterSet struct {
	ZoneIDs   []int64
	StreetIDs []int64
	UnitIDs   []int64
	DateFrom  time.Time
	DateTo    time.Time
}

// Parse decodes a filter set from URL query values. Unknown or malformed
// values are dropped rather than failing the whole request.
func Parse(values url.Values) FilterSet {
	fs := FilterSet{
		ZoneIDs:   parseIDs(values["zone_id"]),
		StreetIDs: parseIDs(values["street_id"]),
		UnitIDs:   parseIDs(values["unit_id"]),
	}
	if t, err := time.Parse(dateParamLayout, values.Get("date_from")); err == nil {
		fs.DateFrom = t
	}
	if t, err := time.Parse(dateParamLayout, values.Get("date_to")); err == nil {
		fs.DateTo = t
	}
	return fs
}

// Encode serialises the filter set as repeated same-named query parameters,
// the wire shape the SLA API expects.
func (f FilterSet) Encode() url.Values {
	values := url.Values{}
	for _, id := range f.ZoneIDs {
		values.Add("zone_id", strconv.FormatInt(id, 10))
	}
	for _, id := range f.StreetIDs {
		values.Add("street_id", strconv.FormatInt(id, 10))
	}
	for _, id := range f.UnitIDs {
		values.Add("unit_id", strconv.FormatInt(id, 10))
	}
	if !f.DateFrom.IsZero() {
		values.Set("date_from", f.DateFrom.Format(dateParamLayout))
	}
	if !f.DateTo.IsZero() {
		values.Set("date_to", f.DateTo.Format(dateParamLayout))
	}
	return values
}

// Equal reports whether two filter sets describe the same scope. Both
// sides are compared in their canonical encoded form.
func (f FilterSet) Equal(other FilterSet) bool {
	return f.Encode().Encode() == other.Encode().Encode()
}

// IsZero reports whether no filter is set at all.
func (f FilterSet) IsZero() bool {
	return len(f.ZoneIDs) == 0 && len(f.StreetIDs) == 0 && len(f.UnitIDs) == 0 &&
		f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// Clone returns a deep copy so an applied set can be handed to another view
// without aliasing the slices.
func (f FilterSet) Clone() FilterSet {
	return FilterSet{
		ZoneIDs:   append([]int64(nil), f.ZoneIDs...),
		StreetIDs: append([]int64(nil), f.StreetIDs...),
		UnitIDs:   append([]int64(nil), f.UnitIDs...),
		DateFrom:  f.DateFrom,
		DateTo:    f.DateTo,
	}
}

// WithDefaultRange fills in a trailing window ending now when no dates were
// supplied. The report view defaults to the trailing 30 days.
func (f FilterSet) WithDefaultRange(now time.Time, window time.Duration) FilterSet {
	out := f.Clone()
	if out.DateFrom.IsZero() && out.DateTo.IsZero() {
		out.DateTo = now
		out.DateFrom = now.Add(-window)
	}
	return out
}

// WithQuickRange replaces the date bounds with a trailing window, keeping
// the entity selections untouched.
func (f FilterSet) WithQuickRange(now time.Time, window time.Duration) FilterSet {
	out := f.Clone()
	out.DateTo = now
	out.DateFrom = now.Add(-window)
	return out
}

// QuickRangeWindow resolves the timeline quick-select names used on the
// report page. Unknown names return false.
func QuickRangeWindow(name string) (time.Duration, bool) {
	switch name {
	case "24h":
		return 24 * time.Hour, true
	case "7d":
		return 7 * 24 * time.Hour, true
	case "30d":
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// OptionTree describes the parent relationships of the pick-list options,
// as returned by the master-filters endpoint.
type OptionTree struct {
	// StreetParents maps a street id to its zone id.
	StreetParents map[int64]int64
	// UnitParents maps a unit id to its street id.
	UnitParents map[int64]int64
}

// Cascade removes streets whose zone is no longer selected and units whose
// street is no longer selected. With no zones selected every street is
// eligible, and likewise for units when no streets are selected.
func (f FilterSet) Cascade(tree OptionTree) FilterSet {
	out := f.Clone()
	if len(out.ZoneIDs) > 0 && tree.StreetParents != nil {
		zones := idSet(out.ZoneIDs)
		out.StreetIDs = keepMembers(out.StreetIDs, tree.StreetParents, zones)
	}
	if len(out.StreetIDs) > 0 && tree.UnitParents != nil {
		streets := idSet(out.StreetIDs)
		out.UnitIDs = keepMembers(out.UnitIDs, tree.UnitParents, streets)
	} else if len(out.ZoneIDs) > 0 && len(f.StreetIDs) > 0 && len(out.StreetIDs) == 0 {
		// Every selected street fell out of scope, so units anchored to
		// those streets are invalid too.
		out.UnitIDs = nil
	}
	return out
}

func keepMembers(ids []int64, parents map[int64]int64, allowed map[int64]struct{}) []int64 {
	kept := ids[:0:0]
	for _, id := range ids {
		parent, ok := parents[id]
		if !ok {
			continue
		}
		if _, ok := allowed[parent]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func parseIDs(raw []string) []int64 {
	if len(raw) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
