package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// ConfigPersister writes session tokens back to the config file so later
// invocations reuse them.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateVendorToken stores a freshly issued token on the named vendor entry.
func (p *ConfigPersister) UpdateVendorToken(name string, token *teatime.Token) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	entry, ok := config.Vendors[name]
	if !ok {
		return fmt.Errorf("vendor entry %q: %w", name, constants.ErrVendorNotConfigured)
	}

	if token == nil {
		entry.Token = ""
		entry.TokenKind = ""
		entry.TokenExpiresAt = nil
	} else {
		entry.Token = token.Value
		entry.TokenKind = string(token.Kind)

		if token.ExpiresAt.IsZero() {
			entry.TokenExpiresAt = nil
		} else {
			expiresAt := token.ExpiresAt
			entry.TokenExpiresAt = &expiresAt
		}
	}

	now := time.Now()
	entry.LastLogin = &now

	return saveConfigStruct(config)
}
