package server

import (
	"context"
	"net/http"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pasaporte-animal/go-pasaporte/aggregator"
	"github.com/pasaporte-animal/go-pasaporte/coordinator"
	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/service/ipfs"
	"github.com/pasaporte-animal/go-pasaporte/service/ledger"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/rpc"
	"github.com/pasaporte-animal/go-pasaporte/service/wallet"
)

func init() {
	env.RegisterValidation("WALLET_PRIVATE_KEY", "required")
}

// Clients holds every long-lived dependency of the HTTP surface.
type Clients struct {
	HTTPClient  *http.Client
	Session     *wallet.Session
	Store       *ipfs.Store
	Gateway     *ledger.Gateway
	Aggregator  *aggregator.Aggregator
	Coordinator *coordinator.Coordinator
}

// Init initializes the server and registers it on the default mux.
func Init() {
	setDefaults()
	ctx := context.Background()
	c := ClientInit(ctx)
	router := CoreInit(ctx, c)
	logger.For(ctx).Info("Starting pasaporte server...")
	http.Handle("/", router)
}

// ClientInit sets up every client the handlers depend on: the wallet session
// connected to the required chain, the content store, and the ledger gateway
// bound over the session's node connection.
func ClientInit(ctx context.Context) *Clients {
	env.ValidateEnv()

	httpClient := rpc.NewHTTPClient()
	store := ipfs.NewStore(httpClient, rpc.NewIPFSShell())

	chain := requiredChain()
	provider, err := wallet.NewNodeProvider(env.GetString("WALLET_PRIVATE_KEY"), chain)
	if err != nil {
		logger.For(ctx).Fatalf("failed to set up signing provider: %s", err)
	}
	session := wallet.NewSession(provider, chain)
	account, err := session.Connect(ctx)
	if err != nil {
		logger.For(ctx).Fatalf("failed to connect session: %s", err)
	}
	logger.For(ctx).Infof("session connected as %s on chain %s", account, chain.ChainID)

	gateway, err := ledger.NewGateway(session, provider.Client())
	if err != nil {
		logger.For(ctx).Fatalf("failed to bind contracts: %s", err)
	}

	return &Clients{
		HTTPClient:  httpClient,
		Session:     session,
		Store:       store,
		Gateway:     gateway,
		Aggregator:  aggregator.New(gateway, store),
		Coordinator: coordinator.New(session, store, gateway),
	}
}

// CoreInit initializes logging, sentry, and the router.
func CoreInit(ctx context.Context, clients *Clients) *gin.Engine {
	InitSentry()
	logger.SetLoggerOptions(func(l *logrus.Logger) {
		l.SetReportCaller(true)
		if env.GetString("ENV") != "local" {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
	})

	if env.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}

	router := gin.Default()
	router.Use(sentryMiddleware(), requestLogger(), errLogger())

	logger.For(ctx).Info("Registering handlers...")

	return handlersInit(router, clients)
}

func requiredChain() wallet.ChainConfig {
	return wallet.ChainConfig{
		ChainID:           env.GetString("CHAIN_ID"),
		ChainName:         env.GetString("CHAIN_NAME"),
		CurrencyName:      "Sepolia Ether",
		CurrencySymbol:    "ETH",
		CurrencyDecimals:  18,
		RPCURLs:           []string{env.GetString("RPC_URL")},
		BlockExplorerURLs: []string{env.GetString("BLOCK_EXPLORER_URL")},
	}
}

func setDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("CHAIN_ID", "0xaa36a7")
	viper.SetDefault("CHAIN_NAME", "Sepolia")
	viper.SetDefault("RPC_URL", "https://rpc.sepolia.org")
	viper.SetDefault("BLOCK_EXPLORER_URL", "https://sepolia.etherscan.io")
	viper.SetDefault("WALLET_PRIVATE_KEY", "")
	viper.SetDefault("IDENTITY_REGISTRY_ADDRESS", "0x2ee6AB35f7E07C230c9ec5B770e969EFAcf6B6f9")
	viper.SetDefault("MEDICAL_LEDGER_ADDRESS", "0x7f677dffa0628058909e0d72f5C39b4cdc3Bdb31")
	viper.SetDefault("CREDENTIAL_REGISTRY_ADDRESS", "0xD9E0Bb2Cd4f52d1393A6165bAb9122C4F0B5DA30")
	viper.SetDefault("IPFS_GATEWAY", "https://ipfs.io/ipfs/")
	viper.SetDefault("IPFS_API_URL", "")
	viper.SetDefault("PINATA_API_URL", "https://api.pinata.cloud")
	viper.SetDefault("PINATA_JWT", "")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)
	viper.SetDefault("VERSION", "")

	viper.AutomaticEnv()

	if env.GetString("ENV") != "local" {
		logger.For(nil).Info("running in non-local environment, skipping environment configuration")
	} else if len(os.Args) > 1 {
		viper.SetConfigFile(os.Args[1])
		if err := viper.ReadInConfig(); err != nil {
			logger.For(nil).Warnf("could not read config file %s: %s", os.Args[1], err)
		}
	}
}

// InitSentry initializes error reporting for non-local environments.
func InitSentry() {
	if env.GetString("ENV") == "local" {
		logger.For(nil).Info("skipping sentry init")
		return
	}

	logger.For(nil).Info("initializing sentry...")

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              env.GetString("SENTRY_DSN"),
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		Release:          env.GetString("VERSION"),
		AttachStacktrace: true,
	})
	if err != nil {
		logger.For(nil).Fatalf("failed to start sentry: %s", err)
	}
}
