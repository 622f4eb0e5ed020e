package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/config"
	"github.com/bitfsorg/libreceipt-go/eventlog"
	"github.com/bitfsorg/libreceipt-go/metrics"
	"github.com/bitfsorg/libreceipt-go/network"
	"github.com/bitfsorg/libreceipt-go/payout"
	"github.com/bitfsorg/libreceipt-go/revshare"
	"github.com/bitfsorg/libreceipt-go/store"
	"github.com/bitfsorg/libreceipt-go/wallet"
)

const (
	// EnvWalletKey holds the hex private key of the native payout wallet.
	// It takes precedence over the sealed wallet file.
	EnvWalletKey = "RECEIPT_WALLET_KEY"
	// EnvWalletPassword unlocks <datadir>/wallet.enc.
	EnvWalletPassword = "RECEIPT_WALLET_PASSWORD"
	// EnvWalletMnemonic makes "wallet new" import instead of generate.
	EnvWalletMnemonic = "RECEIPT_WALLET_MNEMONIC"
	// EnvWalletPassphrase is the optional BIP39 passphrase.
	EnvWalletPassphrase = "RECEIPT_WALLET_PASSPHRASE"
)

// app is one opened data directory.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	st      *store.BoltStore
	disp    *eventlog.Dispatcher
	sinks   []eventlog.Sink
	metrics *metrics.Metrics
	eng     *revshare.Engine

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (c *cli) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.ConfigPath(c.dataDir)
}

func (c *cli) loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(c.configFile())
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return cfg, fmt.Errorf("%w (run \"receiptctl init\" first)", err)
		}
		return cfg, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func buildLogger(level, file string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidLogLevel, err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if file != "" {
		zc.OutputPaths = []string{file}
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// open loads the config, opens the store and wires the engine.
func (c *cli) open(ctx context.Context) (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger, err := buildLogger(level, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	st, err := store.OpenBolt(config.DBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, st: st, metrics: metrics.New(c.registry)}
	a.closers = append(a.closers, func() { _ = st.Close() })

	if err := a.connectSinks(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.disp = eventlog.NewDispatcher(logger, a.sinks...)
	a.closers = append(a.closers, a.disp.Close)

	opts := []revshare.Option{
		revshare.WithLogger(logger),
		revshare.WithMetrics(a.metrics),
		revshare.WithPublisher(a.disp),
		revshare.WithBundleSource(cfg.BundleSource()),
	}
	native, payments, err := c.nativeTransferer(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if native != nil {
		opts = append(opts, revshare.WithNativeTransferer(native))
	}
	if payments != nil {
		opts = append(opts, revshare.WithPaymentSource(payments))
	}
	token, custody, err := c.tokenTransferer(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if token != nil {
		opts = append(opts, revshare.WithTokenTransferer(token, custody))
	}
	a.eng = revshare.New(st, opts...)
	return a, nil
}

// connectSinks dials the configured NATS and Redis indexer channels.
func (a *app) connectSinks(ctx context.Context) error {
	ev := a.cfg.Events
	if ev.NATSURL != "" {
		nc, err := nats.Connect(ev.NATSURL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.closers = append(a.closers, func() {
			_ = nc.Drain()
			nc.Close()
		})
		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("create JetStream context: %w", err)
		}
		a.sinks = append(a.sinks, eventlog.NewNATSSink(js, ev.NATSSubject))
	}
	if ev.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: ev.RedisAddr})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		a.sinks = append(a.sinks, eventlog.NewRedisSink(rdb, ev.RedisPrefix))
	}
	return nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "RECEIPT_") {
			env[k] = v
		}
	}
	return env
}

// nativeTransferer builds the wallet sender from RECEIPT_WALLET_KEY or, when
// that is unset, from the sealed wallet in the data directory. Incoming
// native revenue is verified against the same wallet: it both receives
// payments and pays claims.
func (c *cli) nativeTransferer(cfg config.Config, logger *zap.Logger) (payout.Transferer, revshare.PaymentSource, error) {
	if c.native != nil {
		return c.native, c.payments, nil
	}
	key, err := payoutKey(cfg)
	if err != nil || key == nil {
		return nil, c.payments, err
	}
	rpcCfg, err := network.ResolveConfig(&cfg.Node, environ(), network.EnvNode, cfg.Network)
	if err != nil {
		return nil, nil, err
	}
	node := network.NewRPCClient(*rpcCfg)
	mainnet := cfg.Network == "mainnet"
	sender, err := payout.NewNativeSender(node, key,
		payout.WithMainnet(mainnet),
		payout.WithNativeLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if c.payments != nil {
		return sender, c.payments, nil
	}
	var minConf int64
	if mainnet {
		minConf = 1
	}
	receipts, err := payout.NewWalletReceipts(node, sender.Wallet(),
		payout.WithMinConfirmations(minConf),
		payout.WithReceiptsLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return sender, receipts, nil
}

// payoutKey returns nil when neither a raw key nor a wallet file exists.
func payoutKey(cfg config.Config) (*ec.PrivateKey, error) {
	if keyHex := os.Getenv(EnvWalletKey); keyHex != "" {
		raw, err := hex.DecodeString(keyHex)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("%s must be a 32-byte hex private key", EnvWalletKey)
		}
		key, _ := ec.PrivateKeyFromBytes(raw)
		return key, nil
	}
	w, err := wallet.Load(config.WalletPath(cfg.DataDir), os.Getenv(EnvWalletPassword), cfg.Network == "mainnet")
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	kp, err := w.PayoutKey(0)
	if err != nil {
		return nil, err
	}
	return kp.PrivateKey, nil
}

// tokenTransferer builds the token gateway when a token endpoint resolves.
func (c *cli) tokenTransferer(cfg config.Config, logger *zap.Logger) (payout.TokenTransferer, account.Address, error) {
	custody := cfg.Token.Custody
	if c.token != nil {
		return c.token, custody, nil
	}
	if cfg.Engine.PaymentToken.IsZero() {
		return nil, custody, nil
	}
	rpcCfg, err := network.ResolveConfig(&cfg.Token.RPC, environ(), network.EnvToken, cfg.Network)
	if errors.Is(err, network.ErrMissingConfig) {
		return nil, custody, nil
	}
	if err != nil {
		return nil, custody, err
	}
	gw, err := payout.NewTokenGateway(network.NewRPCClient(*rpcCfg), cfg.Engine.PaymentToken.String(), custody, logger)
	if err != nil {
		return nil, custody, err
	}
	return gw, custody, nil
}

// caller resolves --as, falling back to def.
func (c *cli) caller(def account.Address) (account.Address, error) {
	if c.as == "" {
		return def, nil
	}
	return parseAddr(c.as, "caller")
}

func parseAddr(s, what string) (account.Address, error) {
	var a account.Address
	if err := a.UnmarshalText([]byte(s)); err != nil {
		return a, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return a, nil
}
