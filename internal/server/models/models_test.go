package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecord_Access(t *testing.T) {
	f := &FileRecord{UserID: "owner", SharedWith: []string{"friend"}}

	assert.True(t, f.IsOwner("owner"))
	assert.False(t, f.IsOwner("friend"))
	assert.False(t, f.IsOwner(""))

	assert.True(t, f.CanRead("owner"))
	assert.True(t, f.CanRead("friend"))
	assert.False(t, f.CanRead("stranger"))
	assert.False(t, f.CanRead(""))
}

func TestFileRecord_CloneIsDeep(t *testing.T) {
	folder := "folder-1"
	exp := time.Now()
	f := &FileRecord{
		ID:         "f",
		Tags:       []string{"a"},
		Versions:   []FileVersion{{Version: 1}},
		SharedWith: []string{"u2"},
		ShareLinks: []ShareLink{{Token: "t", Emails: []string{"x@y.z"}, ExpiresAt: &exp}},
		FolderID:   &folder,
	}

	c := f.Clone()
	c.Tags[0] = "b"
	c.Versions[0].Version = 9
	c.SharedWith[0] = "u3"
	c.ShareLinks[0].Emails[0] = "changed"
	*c.FolderID = "folder-2"

	assert.Equal(t, "a", f.Tags[0])
	assert.Equal(t, 1, f.Versions[0].Version)
	assert.Equal(t, "u2", f.SharedWith[0])
	assert.Equal(t, "x@y.z", f.ShareLinks[0].Emails[0])
	assert.Equal(t, "folder-1", *f.FolderID)
}

func TestFileRecord_LatestVersion(t *testing.T) {
	assert.Nil(t, (&FileRecord{}).LatestVersion())

	f := &FileRecord{Versions: []FileVersion{{Version: 1}, {Version: 2}}}
	require.NotNil(t, f.LatestVersion())
	assert.Equal(t, 2, f.LatestVersion().Version)
}

func TestShareLink_Policy(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.True(t, (&ShareLink{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&ShareLink{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&ShareLink{}).Expired(now))

	open := &ShareLink{}
	assert.True(t, open.AllowsEmail(""))
	assert.True(t, open.AllowsEmail("anyone@example.com"))

	restricted := &ShareLink{Emails: []string{"Bob@Example.com"}}
	assert.True(t, restricted.AllowsEmail("bob@example.com"))
	assert.False(t, restricted.AllowsEmail("eve@example.com"))
	assert.False(t, restricted.AllowsEmail(""))
}

func TestPermission_Valid(t *testing.T) {
	assert.True(t, PermissionView.Valid())
	assert.True(t, PermissionEdit.Valid())
	assert.False(t, Permission("admin").Valid())
}

func TestIdentity_EffectiveQuota(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024*1024), Identity{}.EffectiveQuota())
	assert.Equal(t, int64(100), Identity{StorageQuota: 100}.EffectiveQuota())
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{SortBy: "bogus", Page: 0, Limit: 5000}.Normalize()
	assert.Equal(t, SortCreatedAt, f.SortBy)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageLimit, f.Limit)

	f = ListFilter{SortBy: SortName, Page: 3, Limit: 10}.Normalize()
	assert.Equal(t, SortName, f.SortBy)
	assert.Equal(t, 20, f.Offset())

	assert.Equal(t, DefaultPageLimit, ListFilter{}.Normalize().Limit)
}

func TestParseOrder(t *testing.T) {
	assert.False(t, ParseOrder("asc"))
	assert.False(t, ParseOrder(" ASC "))
	assert.True(t, ParseOrder("desc"))
	assert.True(t, ParseOrder(""))
}

func TestNewFilePage(t *testing.T) {
	p := NewFilePage(nil, 101, 2, 50)
	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Files)

	assert.Equal(t, 0, NewFilePage(nil, 0, 1, 50).TotalPages)
}
