package core

// Category is an activity code painted onto one hour of a day.
// Zero means the hour was not tracked.
type Category int

const (
	Untracked Category = iota
	Sleep
	Travel
	Work
	Chores
	Exercise
	Leisure
	MiscPrep
)

// categoryLabels is indexed by Category code.
var categoryLabels = [...]string{
	Untracked: "",
	Sleep:     "Sleep",
	Travel:    "Travel",
	Work:      "Work",
	Chores:    "Chores",
	Exercise:  "Exercise",
	Leisure:   "Leisure",
	MiscPrep:  "Misc/Prep",
}

// Label returns the display label for c. ok is false for Untracked and for
// codes outside the known set.
func (c Category) Label() (label string, ok bool) {
	if c <= Untracked || int(c) >= len(categoryLabels) {
		return "", false
	}
	return categoryLabels[c], true
}

// Known reports whether c is one of the seven tracked categories.
func (c Category) Known() bool {
	_, ok := c.Label()
	return ok
}

// Categories returns the tracked categories in code order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryLabels)-1)
	for c := Sleep; int(c) < len(categoryLabels); c++ {
		out = append(out, c)
	}
	return out
}

// CategoryLabels returns the tracked category labels in code order.
func CategoryLabels() []string {
	out := make([]string, 0, len(categoryLabels)-1)
	for _, c := range Categories() {
		label, _ := c.Label()
		out = append(out, label)
	}
	return out
}
