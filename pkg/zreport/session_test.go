package zreport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSession(t *testing.T, content string, nextID int) *Session {
	t.Helper()
	groups, err := Parse(strings.NewReader(content), LoadOptions{})
	require.NoError(t, err)
	return NewSession(groups, nextID, 2017)
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{"0", Ref{0, 0}, false},
		{"3:1", Ref{3, 1}, false},
		{"12:0", Ref{12, 0}, false},
		{"", Ref{}, true},
		{"a", Ref{}, true},
		{"1:", Ref{}, true},
		{"-1", Ref{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionLookup(t *testing.T) {
	s := loadSession(t, reportsJSON, 80001)

	z, err := s.Lookup(Ref{Group: 0, Revision: 1})
	require.NoError(t, err)
	assert.Equal(t, "Z10", z.ZNr())
	assert.Equal(t, "a", s.Group(z).ID)

	_, err = s.Lookup(Ref{Group: 5})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Lookup(Ref{Group: 0, Revision: 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionSelectOnePerGroup(t *testing.T) {
	s := loadSession(t, reportsJSON, 80001)

	newest, _ := s.Lookup(Ref{0, 0})
	older, _ := s.Lookup(Ref{0, 1})

	require.NoError(t, s.Select(newest))
	assert.True(t, newest.Selected)

	err := s.Select(older)
	assert.ErrorIs(t, err, ErrGroupSelected)
	assert.False(t, older.Selected)
	assert.Len(t, s.Selected, 1)

	popped, err := s.Pop()
	require.NoError(t, err)
	assert.Same(t, newest, popped)
	assert.False(t, newest.Selected)

	require.NoError(t, s.Select(older))
}

func TestSessionSelectRejectsUnbalanced(t *testing.T) {
	content := strings.Replace(reportsJSON, `["D-1900-40013", "Kort", "50"]`, `["D-1900-40013", "Kort", "49.99"]`, 1)
	s := loadSession(t, content, 80001)

	z, err := s.Lookup(Ref{1, 0})
	require.NoError(t, err)

	err = s.Select(z)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.False(t, z.Selected)
	assert.Empty(t, s.Selected)
}

func TestSessionPopEmpty(t *testing.T) {
	s := NewSession(nil, 1, 2017)
	_, err := s.Pop()
	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestSessionExport(t *testing.T) {
	s := loadSession(t, reportsJSON, 80001)

	b, _ := s.Lookup(Ref{1, 0})
	a, _ := s.Lookup(Ref{0, 0})
	require.NoError(t, s.Select(b))
	require.NoError(t, s.Select(a))

	var gotFirst int
	var gotOrder []string
	exported, err := s.Export(func(first int, zs []*Z) error {
		gotFirst = first
		for _, z := range zs {
			gotOrder = append(gotOrder, z.ZNr())
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 80001, gotFirst)
	assert.Equal(t, []string{"Z20", "Z11"}, gotOrder)
	assert.Len(t, exported, 2)
	assert.Equal(t, 80003, s.NextID)
	assert.Empty(t, s.Selected)
	assert.False(t, a.Selected)

	_, err = s.Export(func(int, []*Z) error { return nil })
	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestSessionExportFailureKeepsState(t *testing.T) {
	s := loadSession(t, reportsJSON, 80001)
	z, _ := s.Lookup(Ref{0, 0})
	require.NoError(t, s.Select(z))

	boom := errors.New("disk full")
	_, err := s.Export(func(int, []*Z) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 80001, s.NextID)
	assert.Len(t, s.Selected, 1)
	assert.True(t, z.Selected)
}
