package profile

import (
	"testing"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	work     = model.Profile{Name: "W", Email: "w@x.com", SSHHost: "github-work"}
	personal = model.Profile{Name: "P", Email: "p@y.org", SSHHost: "github-personal"}
)

func TestAddToEmptySetListsOne(t *testing.T) {
	var s Set
	require.NoError(t, s.Add("work", work))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "work", list[0].ID)
	assert.Equal(t, work, list[0].Profile)
	assert.False(t, list[0].Default)
}

func TestAddThenGetRoundTrips(t *testing.T) {
	s := NewSet(nil, "")
	require.NoError(t, s.Add("personal", personal))

	got, err := s.Get("personal")
	require.NoError(t, err)
	assert.Equal(t, personal, got)
}

func TestAddDuplicate(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work}, "")
	err := s.Add("work", personal)
	assert.ErrorIs(t, err, apperr.ErrDuplicateProfile)

	got, _ := s.Get("work")
	assert.Equal(t, work, got)
}

func TestAddValidates(t *testing.T) {
	s := NewSet(nil, "")
	cases := map[string]struct {
		id string
		p  model.Profile
	}{
		"empty id":      {"", work},
		"id with space": {"my work", work},
		"empty name":    {"a", model.Profile{Email: "a@b.co", SSHHost: "h"}},
		"bad email":     {"a", model.Profile{Name: "A", Email: "nope", SSHHost: "h"}},
		"empty host":    {"a", model.Profile{Name: "A", Email: "a@b.co"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Add(tc.id, tc.p), apperr.ErrInvalidProfile)
		})
	}
	assert.Zero(t, s.Len())
}

func TestSequenceLeavesNetIDs(t *testing.T) {
	s := NewSet(nil, "")
	require.NoError(t, s.Add("a", work))
	require.NoError(t, s.Add("b", personal))
	require.NoError(t, s.Add("c", work))
	_, err := s.Delete("b")
	require.NoError(t, err)
	require.NoError(t, s.Update("a", personal))
	require.NoError(t, s.Add("b", work))
	_, err = s.Delete("c")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, s.IDs())
	got, _ := s.Get("a")
	assert.Equal(t, personal, got)
}

func TestUpdateMissing(t *testing.T) {
	s := NewSet(nil, "")
	assert.ErrorIs(t, s.Update("ghost", work), apperr.ErrProfileNotFound)
	assert.Zero(t, s.Len())
}

func TestDeleteDefaultClearsMarker(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work, "personal": personal}, "work")

	wasDefault, err := s.Delete("work")
	require.NoError(t, err)
	assert.True(t, wasDefault)
	assert.Empty(t, s.Default())

	wasDefault, err = s.Delete("personal")
	require.NoError(t, err)
	assert.False(t, wasDefault)

	_, err = s.Delete("personal")
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}

func TestSetDefaultUnknownDoesNotMutate(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work}, "work")
	assert.ErrorIs(t, s.SetDefault("ghost"), apperr.ErrProfileNotFound)
	assert.Equal(t, "work", s.Default())
	assert.Equal(t, []string{"work"}, s.IDs())

	s.UnsetDefault()
	assert.ErrorIs(t, s.SetDefault("ghost"), apperr.ErrProfileNotFound)
	assert.Empty(t, s.Default())
}

func TestListMarksDefault(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work, "personal": personal}, "work")
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "personal", list[0].ID)
	assert.False(t, list[0].Default)
	assert.Equal(t, "work", list[1].ID)
	assert.True(t, list[1].Default)
}

func TestDanglingDefault(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work}, "gone")
	id, ok := s.DanglingDefault()
	assert.True(t, ok)
	assert.Equal(t, "gone", id)

	require.NoError(t, s.SetDefault("work"))
	_, ok = s.DanglingDefault()
	assert.False(t, ok)
}

func TestMatchIdentityFirstInIDOrder(t *testing.T) {
	s := NewSet(map[string]model.Profile{
		"zeta":  work,
		"alpha": work,
		"p":     personal,
	}, "")

	np, ok := s.MatchIdentity(model.Identity{Name: "W", Email: "w@x.com"})
	require.True(t, ok)
	assert.Equal(t, "alpha", np.ID)

	_, ok = s.MatchIdentity(model.Identity{Name: "W", Email: "other@x.com"})
	assert.False(t, ok)
	_, ok = s.MatchIdentity(model.Identity{})
	assert.False(t, ok)
}

func TestProfilesReturnsCopy(t *testing.T) {
	s := NewSet(map[string]model.Profile{"work": work}, "")
	m := s.Profiles()
	delete(m, "work")
	assert.True(t, s.Has("work"))
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "first.last+tag@sub.example.org", "x_y%z@host-1.io"} {
		assert.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "a@b", "@b.com", "a b@c.com", "a@b.c"} {
		assert.Error(t, ValidateEmail(bad), bad)
	}
}
