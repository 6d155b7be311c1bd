package walletkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/smartcontractkit/chainlink-common/pkg/services"

	"github.com/ton-connect/walletkit-go/pkg/analytics"
	"github.com/ton-connect/walletkit-go/pkg/config"
	"github.com/ton-connect/walletkit-go/pkg/defi"
	"github.com/ton-connect/walletkit-go/pkg/emulation"
	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/handlers"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/storage"
	"github.com/ton-connect/walletkit-go/pkg/ton/accountevent"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

// Kit wires the wallet toolkit together. The exported components are safe to
// use directly once the kit is started.
type Kit struct {
	services.StateMachine

	lggr logger.Logger
	cfg  config.Config

	Storage  storage.Storage
	API      toncenter.ApiClient
	Wallets  *wallet.Manager
	Sessions *tonconnect.SessionManager
	Events   *events.Bus
	Parser   *intent.Parser
	Resolver *intent.Resolver
	Decoder  *accountevent.Decoder
	Emulator *emulation.Emulator

	Transactions *handlers.TransactionHandler
	SignData     *handlers.SignDataHandler
	Intents      *handlers.IntentHandler

	Swaps   *defi.Registry[defi.SwapProvider]
	Staking *defi.Registry[defi.StakingProvider]
}

type options struct {
	store    storage.Storage
	api      toncenter.ApiClient
	sink     analytics.Sink
	http     *http.Client
	registry *accountevent.Registry
}

type Option func(*options)

// WithStorage overrides the backend selected by config.
func WithStorage(s storage.Storage) Option { return func(o *options) { o.store = s } }

func WithAPIClient(api toncenter.ApiClient) Option { return func(o *options) { o.api = api } }

func WithAnalytics(s analytics.Sink) Option { return func(o *options) { o.sink = s } }

// WithHTTPClient is used for object storage and action URL fetches.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.http = c } }

func WithParserRegistry(r *accountevent.Registry) Option {
	return func(o *options) { o.registry = r }
}

func New(ctx context.Context, cfg config.Config, lggr logger.Logger, opts ...Option) (*Kit, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	lggr = logger.Named(lggr, "WalletKit")

	store := o.store
	if store == nil {
		var err error
		if store, err = openStorage(ctx, cfg.Storage); err != nil {
			return nil, err
		}
	}
	api := o.api
	if api == nil {
		api = toncenter.NewClient(lggr, cfg.Toncenter.URL,
			toncenter.WithAPIKey(cfg.Toncenter.APIKey),
			toncenter.WithTimeout(cfg.Toncenter.Timeout))
	}

	parserOpts := []intent.ParserOption{intent.WithScheme(cfg.Intent.Scheme)}
	var resolverOpts []intent.ResolverOption
	if o.http != nil {
		parserOpts = append(parserOpts, intent.WithHTTPClient(o.http))
		resolverOpts = append(resolverOpts, intent.WithResolverHTTPClient(o.http))
	}

	k := &Kit{
		lggr:     lggr,
		cfg:      cfg,
		Storage:  store,
		API:      api,
		Wallets:  wallet.NewManager(lggr, store),
		Sessions: tonconnect.NewSessionManager(lggr, store),
		Events:   events.NewBus(lggr),
		Parser:   intent.NewParser(lggr, parserOpts...),
		Resolver: intent.NewResolver(lggr, resolverOpts...),
		Decoder:  accountevent.NewDecoder(lggr, o.registry),
		Swaps:    defi.NewRegistry[defi.SwapProvider](),
		Staking:  defi.NewRegistry[defi.StakingProvider](),
	}
	k.Emulator = emulation.NewEmulator(lggr, api, k.Decoder, cfg.Retry.RetryConfig())

	deps := handlers.Deps{
		Wallets:   k.Wallets,
		Sessions:  k.Sessions,
		Previewer: k.Emulator,
		Emitter:   k.Events,
		Analytics: o.sink,
	}
	hopts := handlers.Options{DisablePreview: cfg.Handlers.DisablePreview}
	k.Transactions = handlers.NewTransactionHandler(lggr, deps, hopts)
	k.SignData = handlers.NewSignDataHandler(lggr, deps, hopts)
	k.Intents = handlers.NewIntentHandler(lggr, k.Resolver, deps, hopts)
	return k, nil
}

func openStorage(ctx context.Context, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Backend {
	case config.StorageRedis:
		return storage.NewRedisFromURL(cfg.RedisURL, cfg.RedisPrefix)
	case config.StorageSQLite:
		return storage.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return storage.NewMemory(), nil
	}
}

func (k *Kit) Name() string { return k.lggr.Name() }

// Start loads persisted sessions. Wallets need their keys and are added by
// the caller; their stored descriptors are only reported.
func (k *Kit) Start(ctx context.Context) error {
	return k.StartOnce("WalletKit", func() error {
		if err := k.Sessions.Load(ctx); err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		stored, err := k.Wallets.StoredDescriptors(ctx)
		if err != nil {
			return fmt.Errorf("failed to read wallet descriptors: %w", err)
		}
		k.lggr.Infow("Started", "network", k.cfg.Network, "storedWallets", len(stored), "storage", k.cfg.Storage.Backend)
		return nil
	})
}

func (k *Kit) Close() error {
	return k.StopOnce("WalletKit", func() error {
		k.lggr.Debug("Stopping")
		return k.Storage.Close()
	})
}

func (k *Kit) HealthReport() map[string]error {
	return map[string]error{k.Name(): k.Healthy()}
}

// RegisterStakingProvider adds p behind a quote cache sized by config.
func (k *Kit) RegisterStakingProvider(p defi.StakingProvider) error {
	return k.Staking.Register(defi.NewCachedStakingProvider(p, k.cfg.Cache.StakingQuoteSize, k.cfg.Cache.StakingQuoteTTL))
}

func (k *Kit) QuoteSwap(ctx context.Context, provider string, req defi.SwapQuoteRequest) (*defi.SwapQuote, error) {
	p, err := k.Swaps.Get(provider)
	if err != nil {
		return nil, err
	}
	return defi.QuoteWithTimeout(ctx, k.cfg.Cache.QuoteTimeout, func(ctx context.Context) (*defi.SwapQuote, error) {
		return p.Quote(ctx, req)
	})
}

func (k *Kit) QuoteStake(ctx context.Context, provider string, req defi.StakingQuoteRequest) (*defi.StakingQuote, error) {
	p, err := k.Staking.Get(provider)
	if err != nil {
		return nil, err
	}
	return defi.QuoteWithTimeout(ctx, k.cfg.Cache.QuoteTimeout, func(ctx context.Context) (*defi.StakingQuote, error) {
		return p.Quote(ctx, req)
	})
}

// HandleIntentURL parses raw and handles the intent for the wallet. A parse
// failure is returned as error; handling failures as a protocol reply.
func (k *Kit) HandleIntentURL(ctx context.Context, raw, walletID string) (*handlers.IntentEvent, *tonconnect.ErrorResponse, error) {
	res, err := k.Parser.Parse(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	ev, rpcErr := k.Intents.Handle(ctx, res.Event, walletID, "")
	return ev, rpcErr, nil
}

// DecodeTrace fetches the trace containing txHash and decodes it for account.
func (k *Kit) DecodeTrace(ctx context.Context, txHash, account string) (*accountevent.Event, error) {
	trace, err := k.API.GetTrace(ctx, txHash)
	if err != nil {
		if errors.Is(err, toncenter.ErrTraceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch trace %s: %w", txHash, err)
	}
	return k.Decoder.Decode(trace, account)
}
