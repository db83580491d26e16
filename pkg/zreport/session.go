package zreport

import (
	"fmt"
	"regexp"
	"strconv"
)

// Session tracks which reports are selected for the next export and the
// next free voucher number.
type Session struct {
	NextID   int
	Year     int
	Groups   []*ZGroup
	Selected []*Z

	byID map[string]*ZGroup
}

// NewSession starts a selection over groups with nextID as the first voucher number.
func NewSession(groups []*ZGroup, nextID, year int) *Session {
	s := &Session{
		NextID: nextID,
		Year:   year,
		Groups: groups,
		byID:   make(map[string]*ZGroup, len(groups)),
	}
	for _, g := range groups {
		s.byID[g.ID] = g
	}
	return s
}

// Ref addresses a report as "group" or "group:revision".
type Ref struct {
	Group    int
	Revision int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.Group, r.Revision)
}

var refPattern = regexp.MustCompile(`^(\d+)(?::(\d+))?$`)

// ParseRef reads a report reference. The revision defaults to 0, the newest.
func ParseRef(s string) (Ref, error) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, fmt.Errorf("invalid report reference %q", s)
	}
	group, _ := strconv.Atoi(m[1])
	revision := 0
	if m[2] != "" {
		revision, _ = strconv.Atoi(m[2])
	}
	return Ref{Group: group, Revision: revision}, nil
}

// Lookup resolves a reference to a report.
func (s *Session) Lookup(ref Ref) (*Z, error) {
	if ref.Group < 0 || ref.Group >= len(s.Groups) {
		return nil, fmt.Errorf("%w: group %d", ErrNotFound, ref.Group)
	}
	g := s.Groups[ref.Group]
	if ref.Revision < 0 || ref.Revision >= len(g.Zs) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return g.Zs[ref.Revision], nil
}

// Group returns the group a report belongs to.
func (s *Session) Group(z *Z) *ZGroup {
	return s.byID[z.GroupID]
}

// Select adds z to the export selection. Only one revision per group may be
// selected, and unbalanced reports are refused.
func (s *Session) Select(z *Z) error {
	if g := s.Group(z); g != nil && g.IsSelected() {
		return fmt.Errorf("%s: %w", z.ZNr(), ErrGroupSelected)
	}
	if err := z.Check(); err != nil {
		return err
	}
	z.Selected = true
	s.Selected = append(s.Selected, z)
	return nil
}

// Pop removes the most recently selected report.
func (s *Session) Pop() (*Z, error) {
	if len(s.Selected) == 0 {
		return nil, ErrNothingSelected
	}
	z := s.Selected[len(s.Selected)-1]
	s.Selected = s.Selected[:len(s.Selected)-1]
	z.Selected = false
	return z, nil
}

// Export hands the selection to write together with the first voucher number.
// On success the voucher counter advances by one per report and the selection
// is cleared. The exported reports are returned.
func (s *Session) Export(write func(first int, zs []*Z) error) ([]*Z, error) {
	if len(s.Selected) == 0 {
		return nil, ErrNothingSelected
	}

	exported := s.Selected
	if err := write(s.NextID, exported); err != nil {
		return nil, err
	}

	s.NextID += len(exported)
	for _, z := range exported {
		z.Selected = false
	}
	s.Selected = nil
	return exported, nil
}
