package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ddr4869/fabricsim/broadcast"
	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/ddr4869/fabricsim/common/netconfig"
	"github.com/ddr4869/fabricsim/config"
	"github.com/ddr4869/fabricsim/gateway"
	"github.com/ddr4869/fabricsim/ledger"
)

var (
	address     string
	profilePath string
	difficulty  int

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fabricsim",
	Short: "Fabric-inspired blockchain simulator",
	Long: `fabricsim runs a single-process, permissioned, channel-partitioned ledger
simulator. Chaincode invocations are committed into a proof-of-work-sealed
hash chain per channel and pushed to subscribed WebSocket clients.`,
	PersistentPreRun: initializeConfig,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bootstrap the network and serve the API",
	Long: `Bootstraps the ledger from the network profile (or the built-in demo
network) and serves the REST API and the WebSocket subscription endpoint.`,
	Run: runStart,
}

var validateCmd = &cobra.Command{
	Use:   "validate [channel-name]",
	Short: "Bootstrap the network and validate a channel's chain",
	Args:  cobra.ExactArgs(1),
	Run:   runValidate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "Listen address (overrides SERVER_ADDRESS)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Network profile YAML (overrides NETWORK_PROFILE)")
	rootCmd.PersistentFlags().IntVar(&difficulty, "difficulty", 0, "Mining difficulty (overrides LEDGER_DIFFICULTY)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
}

// initializeConfig loads env configuration, applies flag overrides and sets
// up the logger before any command runs
func initializeConfig(cmd *cobra.Command, args []string) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if address != "" {
		cfg.Server.Address = address
	}
	if profilePath != "" {
		cfg.Server.ProfilePath = profilePath
	}
	if difficulty > 0 {
		cfg.Ledger.Difficulty = difficulty
	}

	if err := logger.Initialize(&logger.Config{
		Level:       logger.LogLevel(cfg.Log.Level),
		Development: cfg.Log.Development,
		Encoding:    "console",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
}

// loadProfile reads the configured network profile, falling back to the
// built-in demo network when none is set
func loadProfile() *netconfig.NetworkProfile {
	if cfg.Server.ProfilePath == "" {
		logger.Info("No network profile configured, using built-in demo network")
		return netconfig.DefaultProfile()
	}

	profile, err := netconfig.ParseProfile(cfg.Server.ProfilePath)
	if err != nil {
		logger.Fatalf("Failed to load network profile: %v", err)
	}
	return profile
}

func runStart(cmd *cobra.Command, args []string) {
	cfg.PrintConfig()

	l := ledger.New(cfg.Ledger.Difficulty, cfg.Server.EventQueueSize)
	l.Bootstrap(loadProfile())

	wsManager := broadcast.NewWebSocketManager()
	go wsManager.Run(l.Events())

	server := gateway.NewServer(l, wsManager)
	if err := server.Start(cfg.Server.Address); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}

func runValidate(cmd *cobra.Command, args []string) {
	channelName := args[0]

	l := ledger.New(cfg.Ledger.Difficulty, cfg.Server.EventQueueSize)
	l.Bootstrap(loadProfile())

	valid, err := l.ValidateChannel(channelName)
	if err != nil {
		logger.Fatalf("Validation failed: %v", err)
	}

	if valid {
		logger.Infof("✅ Channel '%s' chain is valid", channelName)
	} else {
		logger.Errorf("❌ Channel '%s' chain is NOT valid", channelName)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
