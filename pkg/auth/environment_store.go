package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSiteHost      = "EBOOKDL_SITE_HOST"
	EnvSiteCookie    = "EBOOKDL_SITE_COOKIE"
	EnvSiteUserAgent = "EBOOKDL_SITE_USER_AGENT"
)

// EnvironmentStore implements CredentialStore over a single credential
// supplied through EBOOKDL_SITE_* variables. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*SiteCredential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credential when its host matches
func (e *EnvironmentStore) Retrieve(host string) (*SiteCredential, error) {
	cred := e.current()
	if cred == nil || cred.Host != host {
		return nil, ErrCredentialsNotFound
	}
	return cred, nil
}

// List returns the environment credential if one is set
func (e *EnvironmentStore) List() ([]*SiteCredential, error) {
	if cred := e.current(); cred != nil {
		return []*SiteCredential{cred}, nil
	}
	return []*SiteCredential{}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment holds a credential for host
func (e *EnvironmentStore) Exists(host string) bool {
	cred := e.current()
	return cred != nil && cred.Host == host
}

func (e *EnvironmentStore) current() *SiteCredential {
	host := NormalizeHost(os.Getenv(EnvSiteHost))
	cookie := os.Getenv(EnvSiteCookie)
	if host == "" || cookie == "" {
		return nil
	}
	return &SiteCredential{
		Host:         host,
		Cookie:       cookie,
		UserAgent:    os.Getenv(EnvSiteUserAgent),
		LastModified: time.Now(),
	}
}
