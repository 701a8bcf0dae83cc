package commands

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/internal/transport"
	"github.com/teatime-io/teatime/pkg/cache"
	"github.com/teatime-io/teatime/pkg/gitlab"
	"github.com/teatime-io/teatime/pkg/logging"
	"github.com/teatime-io/teatime/pkg/sensu"
	"github.com/teatime-io/teatime/pkg/teatime"
	"github.com/teatime-io/teatime/pkg/vault"
)

// natsBucket is the KV bucket shared by all teatime processes.
const natsBucket = "teatime_responses"

// resolveVendor picks the vendor entry for this invocation: the named entry,
// the current one, or a one-shot entry assembled from --vendor and --api.
func resolveVendor(name string) (*Config, string, *VendorConfig, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, "", nil, err
	}

	if name == "" {
		name = config.CurrentVendor
	}

	if name != "" {
		entry, ok := config.Vendors[name]
		if !ok {
			return nil, "", nil, fmt.Errorf("vendor entry %q: %w", name, constants.ErrVendorNotConfigured)
		}

		return config, name, entry, nil
	}

	kind := viper.GetString("vendor")
	endpoint := viper.GetString("api")

	if kind == "" || endpoint == "" {
		return nil, "", nil, constants.ErrNoEndpointConfigured
	}

	if !vendorKinds[kind] {
		return nil, "", nil, fmt.Errorf("%q: %w", kind, constants.ErrUnknownVendor)
	}

	return config, "", &VendorConfig{Kind: kind, Endpoint: endpoint}, nil
}

// buildClient constructs the binding for a vendor entry, wiring transport,
// optional caching, logging, and any persisted session token.
func buildClient(entry *VendorConfig) (teatime.JSONClient, error) {
	endpoint := entry.Endpoint
	if flag := viper.GetString("api"); flag != "" {
		endpoint = flag
	}

	if endpoint == "" {
		return nil, constants.ErrNoEndpointConfigured
	}

	verbose := viper.GetBool("verbose")

	var (
		transportOpts []transport.Option
		coreOpts      []teatime.Option
	)

	if verbose {
		logging.Setup(logging.Config{Level: logging.LevelDebug, Pretty: true, Output: os.Stderr})
		adapter := logging.NewAdapter(logging.NewLogger(entry.Kind))
		transportOpts = append(transportOpts, transport.WithLogger(adapter), transport.WithDebug(true))
		coreOpts = append(coreOpts, teatime.WithLogger(adapter))
	}

	if entry.SkipSSLValidation || viper.GetBool("skip-ssl-validation") {
		transportOpts = append(transportOpts, transport.WithTLSConfig(&tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- explicit user opt-in via --skip-ssl-validation
			MinVersion:         tls.VersionTLS12,
		}))
	}

	var tr teatime.Transport = transport.New(transportOpts...)

	manager, err := cacheManager(entry)
	if err != nil {
		return nil, err
	}

	if manager != nil {
		tr = cache.NewTransport(tr, manager)
	}

	token := storedToken(entry)

	switch entry.Kind {
	case "gitlab":
		client, err := gitlab.New(endpoint, gitlab.WithTransport(tr), gitlab.WithClientOptions(coreOpts...))
		if err != nil {
			return nil, err
		}

		if token != nil {
			client.SetToken(token)
		}

		return client, nil

	case "vault":
		client, err := vault.New(endpoint, vault.WithTransport(tr), vault.WithClientOptions(coreOpts...))
		if err != nil {
			return nil, err
		}

		if token != nil {
			client.SetToken(token)
		}

		return client, nil

	case "sensu":
		client, err := sensu.New(endpoint, sensu.WithTransport(tr), sensu.WithClientOptions(coreOpts...))
		if err != nil {
			return nil, err
		}

		return client, nil

	default:
		return nil, fmt.Errorf("%q: %w", entry.Kind, constants.ErrUnknownVendor)
	}
}

// cacheManager assembles the response cache selected by config or flags, or
// nil when caching is off.
func cacheManager(entry *VendorConfig) (*cache.Manager, error) {
	backend := entry.Cache
	if flag := viper.GetString("cache"); flag != "" {
		backend = flag
	}

	switch backend {
	case "", "none":
		return nil, nil

	case "memory":
		return cache.NewManagerFromConfig(cache.DefaultConfig())

	case "nats":
		natsURL := entry.NATSURL
		if flag := viper.GetString("nats-url"); flag != "" {
			natsURL = flag
		}

		config := cache.DefaultConfig()
		config.Type = cache.TypeNATS
		config.NATS = &cache.NATSConfig{
			URL:    natsURL,
			Bucket: natsBucket,
			TTL:    config.TTL,
		}

		return cache.NewManagerFromConfig(config)

	default:
		return nil, fmt.Errorf("%w: %s", cache.ErrUnsupportedCacheType, backend)
	}
}

// storedToken rebuilds the persisted session token, if any.
func storedToken(entry *VendorConfig) *teatime.Token {
	if entry.Token == "" {
		return nil
	}

	token := &teatime.Token{
		Value: entry.Token,
		Kind:  teatime.TokenKind(entry.TokenKind),
	}

	if entry.TokenExpiresAt != nil {
		token.ExpiresAt = *entry.TokenExpiresAt
	}

	return token
}
