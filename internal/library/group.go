package library

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Group is a labelled run of books in a grouped listing. Label is empty for
// the group of books that have no value for the grouping key.
type Group struct {
	Label string            `json:"label"`
	Books []*types.BookInfo `json:"books"`
}

// GroupByAuthor groups books under each of their authors, ordered by author
// name. A book with several authors appears in each of their groups.
func GroupByAuthor(books []*types.BookInfo) []Group {
	return groupBy(books, func(b *types.BookInfo) []string { return b.AuthorNames() })
}

// GroupBySeries groups books by series, ordered by series name. Within a
// series books are ordered by their number, then title.
func GroupBySeries(books []*types.BookInfo) []Group {
	groups := groupBy(books, func(b *types.BookInfo) []string {
		if b.Series == nil || b.Series.Name == nil {
			return nil
		}
		return []string{*b.Series.Name}
	})
	for _, g := range groups {
		if g.Label == "" {
			continue
		}
		slices.SortStableFunc(g.Books, func(x, y *types.BookInfo) int {
			return cmp.Compare(number(x), number(y))
		})
	}
	return groups
}

// GroupByLocation groups books by where they are kept.
func GroupByLocation(books []*types.BookInfo) []Group {
	return groupBy(books, func(b *types.BookInfo) []string {
		if b.Location == nil || b.Location.Name == nil {
			return nil
		}
		return []string{*b.Location.Name}
	})
}

// GroupByFirstLetter groups books by the upper-cased first letter of their
// title.
func GroupByFirstLetter(books []*types.BookInfo) []Group {
	return groupBy(books, func(b *types.BookInfo) []string {
		if b.Title == nil {
			return nil
		}
		return []string{firstLetter(*b.Title)}
	})
}

// groupBy places each book in the groups named by key, keeping the input
// order within a group. Groups are sorted by label, case-insensitively, with
// the unlabelled group last.
func groupBy(books []*types.BookInfo, key func(*types.BookInfo) []string) []Group {
	index := make(map[string]int)
	var groups []Group
	add := func(label string, b *types.BookInfo) {
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Books = append(groups[i].Books, b)
	}

	for _, b := range books {
		labels := key(b)
		if len(labels) == 0 {
			add("", b)
			continue
		}
		for _, l := range labels {
			add(l, b)
		}
	}

	slices.SortFunc(groups, func(x, y Group) int {
		switch {
		case x.Label == "" && y.Label == "":
			return 0
		case x.Label == "":
			return 1
		case y.Label == "":
			return -1
		}
		if c := strings.Compare(strings.ToLower(x.Label), strings.ToLower(y.Label)); c != 0 {
			return c
		}
		return strings.Compare(x.Label, y.Label)
	})
	return groups
}

func number(b *types.BookInfo) int64 {
	if b.Number == nil {
		return int64(^uint64(0) >> 1)
	}
	return *b.Number
}

func firstLetter(s string) string {
	s = strings.TrimSpace(s)
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// SectionIndex maps the rows of a grouped listing to alphabetical sections
// for fast scrolling. Each group occupies one header row followed by one row
// per book; the section of a group is the first letter of its label.
type SectionIndex struct {
	sections  []string
	start     map[string]int
	positions []string
}

// NewSectionIndex builds the index for groups laid out in order.
func NewSectionIndex(groups []Group) *SectionIndex {
	idx := &SectionIndex{start: make(map[string]int)}
	current := ""
	for _, g := range groups {
		if g.Label != "" {
			current = firstLetter(g.Label)
		}
		if _, ok := idx.start[current]; !ok {
			idx.start[current] = len(idx.positions)
		}
		for range 1 + len(g.Books) {
			idx.positions = append(idx.positions, current)
		}
	}
	for s := range idx.start {
		idx.sections = append(idx.sections, s)
	}
	// Sections follow row order, so the unlabelled section comes last.
	slices.SortFunc(idx.sections, func(a, b string) int {
		return cmp.Compare(idx.start[a], idx.start[b])
	})
	return idx
}

// Sections returns the section labels in order.
func (x *SectionIndex) Sections() []string { return slices.Clone(x.sections) }

// Len returns the number of rows covered by the index.
func (x *SectionIndex) Len() int { return len(x.positions) }

// PositionForSection returns the first row of section i. Indices past the end
// are clamped to the last section; an empty index returns 0.
func (x *SectionIndex) PositionForSection(i int) int {
	if len(x.sections) == 0 {
		return 0
	}
	i = max(0, min(i, len(x.sections)-1))
	return x.start[x.sections[i]]
}

// SectionForPosition returns the index of the section containing row p.
// Rows outside the listing map to section 0.
func (x *SectionIndex) SectionForPosition(p int) int {
	if p < 0 || p >= len(x.positions) {
		return 0
	}
	return slices.Index(x.sections, x.positions[p])
}
