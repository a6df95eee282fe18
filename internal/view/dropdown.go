package view

// DropdownOption is one entry of a multi-select pick list.
type DropdownOption struct {
	ID       int64
	Name     string
	Selected bool
}

// Dropdown is the view model of the filter bar pick lists. The open and
// close, search narrowing and visible-only select-all behaviors live in
// the page script; the server only marks the applied selection.
type Dropdown struct {
	Name    string
	Label   string
	Options []DropdownOption
}

// NewDropdown marks the selected options within the full option list.
func NewDropdown(name, label string, options []DropdownOption, selected []int64) Dropdown {
	set := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	out := make([]DropdownOption, len(options))
	for i, opt := range options {
		_, sel := set[opt.ID]
		out[i] = DropdownOption{ID: opt.ID, Name: opt.Name, Selected: sel}
	}
	return Dropdown{Name: name, Label: label, Options: out}
}
