package flags

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/coldwallet-ceremony/api"
	"github.com/ruteri/coldwallet-ceremony/ceremony"
	"github.com/ruteri/coldwallet-ceremony/coldwallet"
	"github.com/ruteri/coldwallet-ceremony/common"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/ruteri/coldwallet-ceremony/storage"
	"github.com/ruteri/coldwallet-ceremony/verify"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	return setupLogger(cCtx, nil)
}

// SetupCLILogger logs to the app's error writer so that command output on
// stdout stays machine readable.
func SetupCLILogger(cCtx *cli.Context) *slog.Logger {
	return setupLogger(cCtx, cCtx.App.ErrWriter)
}

func setupLogger(cCtx *cli.Context, out io.Writer) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Writer:  out,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// WalletID reads --wallet-id, rejecting values that do not fit a wallet id.
func WalletID(cCtx *cli.Context) (interfaces.WalletID, error) {
	raw := cCtx.Int64(WalletIDFlag.Name)
	if raw < math.MinInt32 || raw > math.MaxInt32 {
		return 0, fmt.Errorf("--%s %d out of range [%d, %d]", WalletIDFlag.Name, raw, math.MinInt32, math.MaxInt32)
	}
	return interfaces.WalletID(raw), nil
}

// SetupVerifier builds the finalize response verifier selected by --verify.
// With no selection every response is accepted.
func SetupVerifier(cCtx *cli.Context) (interfaces.ResponseVerifier, error) {
	kinds := cCtx.StringSlice(VerifyFlag.Name)
	if len(kinds) == 0 {
		return verify.Noop{}, nil
	}

	var chain verify.Chain
	for _, kind := range kinds {
		switch kind {
		case "xpub":
			chain = append(chain, verify.XpubFormat{})
		case "secp256k1":
			v, err := verify.NewSecp256k1Signature(cCtx.String(VerifyKeyFlag.Name))
			if err != nil {
				return nil, fmt.Errorf("invalid --%s: %w", VerifyKeyFlag.Name, err)
			}
			chain = append(chain, v)
		case "pem":
			keyPEM, err := os.ReadFile(cCtx.String(VerifyKeyFlag.Name))
			if err != nil {
				return nil, fmt.Errorf("could not read --%s: %w", VerifyKeyFlag.Name, err)
			}
			v, err := verify.NewPEMSignature(keyPEM)
			if err != nil {
				return nil, err
			}
			chain = append(chain, v)
		default:
			return nil, fmt.Errorf("unknown verifier %q, expected xpub, secp256k1 or pem", kind)
		}
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// SetupArchive creates the ceremony archive on the storage locations given
// by --archive. It returns nil when archiving is not configured.
func SetupArchive(cCtx *cli.Context, logger *slog.Logger) (*ceremony.Archive, error) {
	uris := cCtx.StringSlice(ArchiveFlag.Name)
	if len(uris) == 0 {
		return nil, nil
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid archive location %s: %w", uri, err)
		}
		locations = append(locations, location)
	}

	var factory interfaces.StorageBackendFactory = storage.NewStorageBackendFactory(logger)
	if certFile := cCtx.String(ArchiveTLSCertFlag.Name); certFile != "" {
		keyFile := cCtx.String(ArchiveTLSKeyFlag.Name)
		factory = factory.WithTLSAuth(func() (tls.Certificate, error) {
			return tls.LoadX509KeyPair(certFile, keyFile)
		})
	}

	backend, err := factory.CreateMultiBackend(locations)
	if err != nil {
		return nil, fmt.Errorf("could not create archive backend: %w", err)
	}
	logger.Info("Archiving ceremony messages", "backend", backend.Name())

	return ceremony.NewArchive(backend, logger), nil
}

var ThresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: coldwallet.DefaultThreshold,
	Usage: "number of elements participating in the wallet",
}

var WalletIDFlag = &cli.Int64Flag{
	Name:     "wallet-id",
	Required: true,
	Usage:    "wallet identifier in the signing system",
}

var VerifyFlag = &cli.StringSliceFlag{
	Name:  "verify",
	Usage: "finalize response checks to apply: xpub, secp256k1, pem (repeatable)",
}

var VerifyKeyFlag = &cli.StringFlag{
	Name:  "verify-key",
	Usage: "signer key for --verify: hex secp256k1 public key, or path to a PEM public key",
}

var ArchiveFlag = &cli.StringSliceFlag{
	Name:  "archive",
	Usage: "storage location URI to archive ceremony messages to (file://, s3://, ipfs://, vault://), repeatable",
}

var ArchiveTLSCertFlag = &cli.StringFlag{
	Name:  "archive-tls-cert",
	Usage: "client certificate for vault archive locations",
}

var ArchiveTLSKeyFlag = &cli.StringFlag{
	Name:  "archive-tls-key",
	Usage: "client certificate key for vault archive locations",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var VerifierFlags = []cli.Flag{
	VerifyFlag,
	VerifyKeyFlag,
}

var ArchiveFlags = []cli.Flag{
	ArchiveFlag,
	ArchiveTLSCertFlag,
	ArchiveTLSKeyFlag,
}

var ServerFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
}
