package models

import "github.com/dmitrijs2005/filevault/internal/common"

// Identity is the verified caller produced by the authentication layer.
type Identity struct {
	UserID       string `json:"userId"`
	StorageQuota int64  `json:"storageQuota"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
}

// EffectiveQuota returns the configured quota or the default when unset.
func (i Identity) EffectiveQuota() int64 {
	if i.StorageQuota <= 0 {
		return common.DefaultStorageQuota
	}
	return i.StorageQuota
}
