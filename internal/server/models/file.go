// Package models defines server-side data models persisted in the record store.
package models

import (
	"slices"
	"time"
)

// FileVersion is one entry of a file's append-only version history.
type FileVersion struct {
	Version   int       `json:"version"`
	BlobKey   string    `json:"blobKey"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// FileRecord is the versioned, shareable, soft-deletable file entity.
// The encrypted payload itself lives in the blob store under BlobKey.
type FileRecord struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	Name         string   `json:"name"`
	OriginalName string   `json:"originalName"`
	MimeType     string   `json:"mimeType"`
	Size         int64    `json:"size"`
	Tags         []string `json:"tags"`

	// BlobKey, EncryptionIV and Checksum always describe the latest version.
	BlobKey      string `json:"blobKey"`
	EncryptionIV string `json:"encryptionIv"`
	Checksum     string `json:"checksum"`

	Versions   []FileVersion `json:"versions"`
	ShareLinks []ShareLink   `json:"shareLinks"`
	// SharedWith is the direct-share recipient set, independent of ShareLinks.
	SharedWith []string `json:"sharedWith"`

	Downloads      int64      `json:"downloads"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`

	// FolderID nil means the file sits at the root.
	FolderID *string `json:"folderId,omitempty"`

	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy *string    `json:"deletedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsDeleted reports whether the record sits in the trash.
func (f *FileRecord) IsDeleted() bool {
	return f.DeletedAt != nil
}

// IsOwner reports whether userID owns the record.
func (f *FileRecord) IsOwner(userID string) bool {
	return userID != "" && f.UserID == userID
}

// CanRead reports whether userID is the owner or a direct-share recipient.
// Tokenized share links are checked separately.
func (f *FileRecord) CanRead(userID string) bool {
	return f.IsOwner(userID) || (userID != "" && slices.Contains(f.SharedWith, userID))
}

// LatestVersion returns the highest version entry or nil for an empty history.
func (f *FileRecord) LatestVersion() *FileVersion {
	if len(f.Versions) == 0 {
		return nil
	}
	return &f.Versions[len(f.Versions)-1]
}

// Clone returns a deep copy of the record.
func (f *FileRecord) Clone() *FileRecord {
	c := *f
	c.Tags = slices.Clone(f.Tags)
	c.Versions = slices.Clone(f.Versions)
	c.SharedWith = slices.Clone(f.SharedWith)
	c.ShareLinks = make([]ShareLink, len(f.ShareLinks))
	for i, l := range f.ShareLinks {
		c.ShareLinks[i] = l.Clone()
	}
	if f.ShareLinks == nil {
		c.ShareLinks = nil
	}
	c.LastAccessedAt = clonePtr(f.LastAccessedAt)
	c.FolderID = clonePtr(f.FolderID)
	c.DeletedAt = clonePtr(f.DeletedAt)
	c.DeletedBy = clonePtr(f.DeletedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
