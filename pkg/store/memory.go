// Package store provides the persistence collaborators behind the identity
// boundary: a Postgres-backed implementation for production and a
// mutex-guarded in-memory implementation for tests and local development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tenantgate/tenantgate/pkg/auth"
)

// Memory is an in-memory implementation of auth.Store. All operations are
// guarded by a single mutex, so CreateUserIfAbsent is atomic per email.
type Memory struct {
	mu         sync.Mutex
	users      map[int64]*auth.User
	tenants    map[int64]*auth.Tenant
	ssoConfigs map[int64]*auth.SSOConfig
	nextID     int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[int64]*auth.User),
		tenants:    make(map[int64]*auth.Tenant),
		ssoConfigs: make(map[int64]*auth.SSOConfig),
		nextID:     1,
	}
}

func (m *Memory) allocID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// FindUserByID implements auth.UserStore
func (m *Memory) FindUserByID(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// FindUserByEmail implements auth.UserStore
func (m *Memory) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.userByEmailLocked(email); user != nil {
		copied := *user
		return &copied, nil
	}
	return nil, auth.ErrNotFound
}

func (m *Memory) userByEmailLocked(email string) *auth.User {
	for _, user := range m.users {
		if user.Email == email {
			return user
		}
	}
	return nil
}

// ListUsersByRole implements auth.UserStore
func (m *Memory) ListUsersByRole(_ context.Context, role auth.Role) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*auth.User
	for _, user := range m.users {
		if user.Role == role {
			copied := *user
			users = append(users, &copied)
		}
	}
	sortUsers(users)
	return users, nil
}

// ListUsersByTenantAndRole implements auth.UserStore
func (m *Memory) ListUsersByTenantAndRole(_ context.Context, tenantID int64, role auth.Role) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*auth.User
	for _, user := range m.users {
		if user.TenantID == tenantID && user.Role == role {
			copied := *user
			users = append(users, &copied)
		}
	}
	sortUsers(users)
	return users, nil
}

// CreateUser implements auth.UserStore
func (m *Memory) CreateUser(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userByEmailLocked(user.Email) != nil {
		return auth.ErrDuplicateEmail(user.Email)
	}
	user.ID = m.allocID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// CreateUserIfAbsent implements auth.UserStore. The single store mutex makes
// the check-and-insert atomic; the loser of a concurrent race gets the
// winner's record back.
func (m *Memory) CreateUserIfAbsent(_ context.Context, user *auth.User) (*auth.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.userByEmailLocked(user.Email); existing != nil {
		copied := *existing
		return &copied, false, nil
	}
	user.ID = m.allocID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	result := copied
	return &result, true, nil
}

// UpdateUser implements auth.UserStore
func (m *Memory) UpdateUser(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// DeleteUser implements auth.UserStore
func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// FindTenantByID implements auth.TenantStore
func (m *Memory) FindTenantByID(_ context.Context, id int64) (*auth.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *tenant
	return &copied, nil
}

// FindTenantBySubdomain implements auth.TenantStore
func (m *Memory) FindTenantBySubdomain(_ context.Context, subdomain string) (*auth.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tenant := range m.tenants {
		if tenant.Subdomain == subdomain {
			copied := *tenant
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

// CreateTenant implements auth.TenantStore
func (m *Memory) CreateTenant(_ context.Context, tenant *auth.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Subdomain == tenant.Subdomain {
			return auth.NewError(auth.CodeDuplicateTenant, "tenant subdomain already exists: "+tenant.Subdomain)
		}
	}
	tenant.ID = m.allocID()
	tenant.CreatedAt = time.Now()
	tenant.UpdatedAt = tenant.CreatedAt
	copied := *tenant
	m.tenants[tenant.ID] = &copied
	return nil
}

// FindSSOConfig implements auth.SSOConfigStore
func (m *Memory) FindSSOConfig(_ context.Context, tenantID int64, provider auth.ProviderKind) (*auth.SSOConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, config := range m.ssoConfigs {
		if config.TenantID == tenantID && config.Provider == provider {
			copied := *config
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

// ListEnabledSSOConfigs implements auth.SSOConfigStore
func (m *Memory) ListEnabledSSOConfigs(_ context.Context, tenantID int64) ([]*auth.SSOConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var configs []*auth.SSOConfig
	for _, config := range m.ssoConfigs {
		if config.TenantID == tenantID && config.Enabled {
			copied := *config
			configs = append(configs, &copied)
		}
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Provider < configs[j].Provider })
	return configs, nil
}

// SaveSSOConfig implements auth.SSOConfigStore
func (m *Memory) SaveSSOConfig(_ context.Context, config *auth.SSOConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if config.ID == 0 {
		for _, existing := range m.ssoConfigs {
			if existing.TenantID == config.TenantID && existing.Provider == config.Provider {
				config.ID = existing.ID
				break
			}
		}
	}
	if config.ID == 0 {
		config.ID = m.allocID()
		config.CreatedAt = time.Now()
	}
	config.UpdatedAt = time.Now()
	copied := *config
	m.ssoConfigs[config.ID] = &copied
	return nil
}

func sortUsers(users []*auth.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
