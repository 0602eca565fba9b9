package auth

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ebookdl/pkg/config"
)

// SiteCredential is a browser session for one repository host. Cookie is the
// raw value of the Cookie request header copied from a logged-in browser.
type SiteCredential struct {
	Host         string    `json:"host"`
	Cookie       string    `json:"cookie"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves the credential under its host
	Store(cred *SiteCredential) error

	// Retrieve gets the credential for a host
	Retrieve(host string) (*SiteCredential, error)

	// List returns all stored credentials
	List() ([]*SiteCredential, error)

	// Delete removes the credential for a host
	Delete(host string) error

	// Exists checks if a credential exists for a host
	Exists(host string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain when
// available, an encrypted file in the config directory, and the environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, in priority order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(cred *SiteCredential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	host := NormalizeHost(cred.Host)
	if host == "" {
		return errors.New("host is required")
	}
	if strings.TrimSpace(cred.Cookie) == "" {
		return errors.New("cookie is required")
	}

	cred.Host = host
	cred.Cookie = strings.TrimSpace(cred.Cookie)
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential for host from the first store that has it
func (m *Manager) Retrieve(host string) (*SiteCredential, error) {
	host = NormalizeHost(host)
	for _, store := range m.stores {
		if cred, err := store.Retrieve(host); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for host: %s", ErrCredentialsNotFound, host)
}

// ForURL finds the credential for rawURL's host, falling back to parent
// domains so a cookie stored for upi.edu also serves repository.upi.edu.
func (m *Manager) ForURL(rawURL string) (*SiteCredential, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, ErrCredentialsNotFound
	}

	for _, host := range candidateHosts(NormalizeHost(u.Hostname())) {
		if cred, err := m.Retrieve(host); err == nil {
			return cred, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns all stored credentials, newest copy per host, sorted by host
func (m *Manager) List() ([]*SiteCredential, error) {
	byHost := make(map[string]*SiteCredential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byHost[cred.Host]; !ok || cred.LastModified.After(existing.LastModified) {
				byHost[cred.Host] = cred
			}
		}
	}

	result := make([]*SiteCredential, 0, len(byHost))
	for _, cred := range byHost {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Host < result[j].Host })
	return result, nil
}

// Delete removes the credential for host from all stores
func (m *Manager) Delete(host string) error {
	host = NormalizeHost(host)

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(host); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for host: %s", ErrCredentialsNotFound, host)
}

// NormalizeHost accepts a host or a URL and returns the lower-cased host
// without port or leading "www.".
func NormalizeHost(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Hostname()
		}
	} else if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(strings.TrimSuffix(s, "."), "www.")
}

// candidateHosts returns host followed by its parent domains with at least
// two labels.
func candidateHosts(host string) []string {
	if host == "" {
		return nil
	}
	hosts := []string{host}
	labels := strings.Split(host, ".")
	for i := 1; len(labels)-i >= 2; i++ {
		hosts = append(hosts, strings.Join(labels[i:], "."))
	}
	return hosts
}

// SanitizeCredential creates a copy of the credential with the cookie masked
func SanitizeCredential(cred *SiteCredential) *SiteCredential {
	if cred == nil {
		return nil
	}

	return &SiteCredential{
		Host:         cred.Host,
		Cookie:       maskString(cred.Cookie),
		UserAgent:    cred.UserAgent,
		LastModified: cred.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
