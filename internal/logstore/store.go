// Package logstore is the flattened, time-ordered view consumers browse: one
// row per entry across all leaves of a parsed tree, with filtering, selection
// and per-source time shifting.
package logstore

import (
	"sort"
	"time"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// Entry identifiers carry bookkeeping during a time shift. Outside of Shift,
// visible rows hold their visible index and hidden rows hold Hidden.
const (
	Hidden         uint32 = 0xFFFFFFFD
	markedSelected uint32 = 0xFFFFFFFE
	markedAnchor   uint32 = 0xFFFFFFFF
)

// Row is one entry with the leaf it came from.
type Row struct {
	Entry      model.LogEntry
	SourceID   uint32
	SourcePath string
}

// Source is a leaf of the parsed tree.
type Source struct {
	ID   uint32
	Path string
}

// Store is not safe for concurrent use.
type Store struct {
	rows    []Row
	sources []Source
	visible []int

	filter  model.Filter
	matcher *model.Matcher

	selected map[int]struct{}
	selRange *[2]int
	anchor   int
}

// New flattens root. Rows are ordered by timestamp; entries with equal
// timestamps keep tree order.
func New(root *model.LogSource) *Store {
	s := &Store{
		selected: make(map[int]struct{}),
		anchor:   -1,
	}
	if root != nil {
		root.Walk(func(path []string, leaf *model.LogSource) {
			id := uint32(len(s.sources))
			p := model.JoinPath(path)
			s.sources = append(s.sources, Source{ID: id, Path: p})
			for _, e := range leaf.Entries {
				s.rows = append(s.rows, Row{Entry: e, SourceID: id, SourcePath: p})
			}
		})
	}
	s.sortRows()
	s.Apply(model.Filter{})
	return s
}

func (s *Store) sortRows() {
	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.rows[i].Entry.Timestamp.Before(s.rows[j].Entry.Timestamp)
	})
}

// Sources lists the leaves in tree order.
func (s *Store) Sources() []Source {
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// SourceIDs returns the ids of every source whose path matches.
func (s *Store) SourceIDs(match func(path string) bool) []uint32 {
	var ids []uint32
	for _, src := range s.sources {
		if match(src.Path) {
			ids = append(ids, src.ID)
		}
	}
	return ids
}

// Len returns the number of rows, visible or not.
func (s *Store) Len() int { return len(s.rows) }

// Row returns the row at offset i.
func (s *Store) Row(i int) Row { return s.rows[i] }

// Visible returns the rows passing the current filter, in order.
func (s *Store) Visible() []Row {
	out := make([]Row, len(s.visible))
	for k, i := range s.visible {
		out[k] = s.rows[i]
	}
	return out
}

// VisibleOffsets returns the row offsets passing the current filter.
func (s *Store) VisibleOffsets() []int {
	out := make([]int, len(s.visible))
	copy(out, s.visible)
	return out
}

// Filter returns the filter last applied.
func (s *Store) Filter() model.Filter { return s.filter }

// Apply makes f the current filter and renumbers entry identifiers.
func (s *Store) Apply(f model.Filter) {
	s.filter = f
	s.matcher = f.Compile()
	s.refresh()
}

func (s *Store) refresh() {
	s.visible = s.visible[:0]
	for i := range s.rows {
		row := &s.rows[i]
		if s.matcher.Match(row.SourceID, &row.Entry) {
			row.Entry.EntryID = uint32(len(s.visible))
			s.visible = append(s.visible, i)
		} else {
			row.Entry.EntryID = Hidden
		}
	}
}

// Select adds the row at offset i to the selection.
func (s *Store) Select(i int) {
	if i < 0 || i >= len(s.rows) {
		return
	}
	s.selected[i] = struct{}{}
}

// SelectRange selects offsets a through b inclusive, replacing any previous
// range. Out-of-bounds ends are clamped.
func (s *Store) SelectRange(a, b int) {
	if a > b {
		a, b = b, a
	}
	if a < 0 {
		a = 0
	}
	if b >= len(s.rows) {
		b = len(s.rows) - 1
	}
	if a > b {
		s.selRange = nil
		return
	}
	s.selRange = &[2]int{a, b}
}

// SetAnchor marks offset i as the reference row for range selection and
// relative time display. A negative i clears it.
func (s *Store) SetAnchor(i int) {
	if i >= len(s.rows) {
		return
	}
	if i < 0 {
		i = -1
	}
	s.anchor = i
}

// Anchor returns the anchor offset.
func (s *Store) Anchor() (int, bool) {
	return s.anchor, s.anchor >= 0
}

// ClearSelection drops single selections and the range. The anchor stays.
func (s *Store) ClearSelection() {
	clear(s.selected)
	s.selRange = nil
}

// Selected returns every selected offset in ascending order.
func (s *Store) Selected() []int {
	set := make(map[int]struct{}, len(s.selected))
	for i := range s.selected {
		set[i] = struct{}{}
	}
	if s.selRange != nil {
		for i := s.selRange[0]; i <= s.selRange[1]; i++ {
			set[i] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Shift moves the timestamps of every entry of the given sources by delta and
// re-sorts. Selected rows and the anchor follow their entries to their new
// offsets; the current filter is applied again afterwards.
func (s *Store) Shift(sourceIDs []uint32, delta time.Duration) {
	if len(sourceIDs) == 0 || delta == 0 {
		return
	}

	selectionActive := false
	for _, i := range s.Selected() {
		s.rows[i].Entry.EntryID = markedSelected
		selectionActive = true
	}
	anchorMarked := false
	if s.anchor >= 0 {
		s.rows[s.anchor].Entry.EntryID = markedAnchor
		anchorMarked = true
	}

	shift := make(map[uint32]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		shift[id] = struct{}{}
	}
	for i := range s.rows {
		if _, ok := shift[s.rows[i].SourceID]; ok {
			s.rows[i].Entry.Timestamp = s.rows[i].Entry.Timestamp.Add(delta)
		}
	}
	s.sortRows()

	if anchorMarked {
		s.anchor = -1
		for i := range s.rows {
			if s.rows[i].Entry.EntryID == markedAnchor {
				s.anchor = i
				break
			}
		}
	}

	if selectionActive {
		s.ClearSelection()
		for i := range s.rows {
			if s.rows[i].Entry.EntryID == markedSelected {
				s.selected[i] = struct{}{}
			}
		}
		if s.anchor >= 0 {
			s.selected[s.anchor] = struct{}{}
		}
	}

	s.refresh()
}
