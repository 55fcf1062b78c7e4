package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Zereker/apix"
	"github.com/Zereker/apix/client"
	"github.com/Zereker/apix/srrp"
)

var rootCmd = &cobra.Command{
	Use:   "apix-client",
	Short: "Attach to an apix stream and print what arrives",
	Long: `apix-client opens a stream to an apix endpoint, sends the /sync
handshake and prints every SRRP frame and text line it receives.
The session ends when the peer closes the stream or sends "exit".

Every flag can also be set through the environment with the APIX_ prefix,
e.g. APIX_ADDR=/run/apix.sock. .env and .env.local are loaded first.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.Flags()
	f.String("network", "unix", "Network of the endpoint (unix or tcp)")
	f.String("addr", "/tmp/apix", "Socket path or host:port of the endpoint")
	f.String("kind", client.DefaultKind, "Kind tag of the handshake frame (4 hex digits)")
	f.String("anchor", srrp.AnchorSync, "Anchor of the handshake frame")
	f.String("payload", "", "Payload of the handshake frame")
	f.String("exit-token", client.DefaultExitToken, "Text that ends the session")
	f.Duration("wait-timeout", 0, "How long to wait for an event before an idle tick (0 waits forever)")
	f.Duration("sync-interval", 0, "Resend the handshake when idle this long (0 disables)")
	f.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	f.Bool("metrics", false, "Write client metrics to stderr on exit")

	_ = viper.BindPFlags(f)
}

// initConfig loads env files and binds APIX_* variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("apix")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, _ []string) error {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	network := viper.GetString("network")
	addr := viper.GetString("addr")

	waitTimeout := viper.GetDuration("wait-timeout")
	syncInterval := viper.GetDuration("sync-interval")
	if syncInterval > 0 && (waitTimeout == 0 || waitTimeout > syncInterval) {
		// resync runs on idle ticks
		waitTimeout = syncInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(
		client.Dialer(network, addr,
			apix.LoggerOption(newLogrusLogger("transport")),
			apix.WaitTimeoutOption(waitTimeout),
		),
		client.WithLogger(newLogrusLogger("client")),
		client.WithHandler(client.NewPrintHandler(os.Stdout)),
		client.WithHandshake(viper.GetString("kind"), viper.GetString("anchor"), []byte(viper.GetString("payload"))),
		client.WithExitToken(viper.GetString("exit-token")),
		client.WithSyncInterval(syncInterval),
	)

	log.WithFields(log.Fields{
		"network":       network,
		"addr":          addr,
		"wait_timeout":  waitTimeout,
		"sync_interval": syncInterval,
	}).Info("starting client")

	start := time.Now()
	err = c.Run(ctx)

	if viper.GetBool("metrics") {
		metrics.WritePrometheus(os.Stderr, false)
	}

	if errors.Is(err, context.Canceled) {
		log.WithField("elapsed", time.Since(start)).Info("interrupted")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("client stopped")
		return err
	}

	log.WithField("elapsed", time.Since(start)).Info("session ended")
	return nil
}
