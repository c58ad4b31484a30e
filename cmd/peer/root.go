package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/dkeye/Meet/internal/client"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "peer",
	Short: "Headless meet participant",
	Long: `peer talks to a meet server the way a browser would: REST calls for
meetings, the signaling websocket for rooms and WebRTC for media.

Every flag can also be set from the environment, e.g. MEET_SERVER, MEET_TOKEN.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if viper.GetBool("verbose") {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("MEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "Server base URL")
	flags.String("token", "", "Bearer token (see `peer token`)")
	flags.String("codec", protocol.SubprotocolJSON, "Signaling codec: "+strings.Join(protocol.Subprotocols(), ", "))
	flags.BoolP("verbose", "v", false, "Debug logging")
	_ = viper.BindPFlags(flags)
}

func newAPI() *client.API {
	return client.NewAPI(viper.GetString("server"), viper.GetString("token"))
}
