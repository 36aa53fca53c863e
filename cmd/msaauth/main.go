// Package main provides the entry point for the Minecraft sign-in CLI.
// It signs a Microsoft account in through the browser consent page and relays the
// authorization code through Xbox Live to the Minecraft profile.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mcmsa/msaauth/internal/buildinfo"
	"github.com/mcmsa/msaauth/internal/cmd"
	"github.com/mcmsa/msaauth/internal/config"
	"github.com/mcmsa/msaauth/internal/logging"
	"github.com/mcmsa/msaauth/internal/util"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var (
		configPath   string
		callbackPort int
		noBrowser    bool
		noListener   bool
		printURL     bool
		copyURL      bool
		jsonOutput   bool
		metricsFile  string
		debug        bool
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.IntVar(&callbackPort, "callback-port", 0, "Override the localhost redirect port (default 8080)")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for sign-in")
	flag.BoolVar(&noListener, "no-listener", false, "Don't listen for the redirect; paste the redirected URL instead")
	flag.BoolVar(&printURL, "print-url", false, "Print the sign-in URL and exit")
	flag.BoolVar(&copyURL, "copy-url", false, "Copy the sign-in URL to the clipboard")
	flag.BoolVar(&jsonOutput, "json", false, "Print the profile as JSON")
	flag.StringVar(&metricsFile, "metrics-file", "", "Write stage metrics to a Prometheus textfile")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("msaauth Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		os.Exit(1)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	configFilePath := configPath
	if configFilePath == "" {
		if candidate := filepath.Join(wd, "config.yaml"); fileExists(candidate) {
			configFilePath = candidate
		}
	}

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	if callbackPort > 0 {
		// A redirect derived from the old port follows the override.
		if cfg.RedirectURL == fmt.Sprintf("http://localhost:%d/token", cfg.CallbackPort) {
			cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/token", callbackPort)
		}
		cfg.CallbackPort = callbackPort
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	if debug {
		cfg.Debug = true
	}
	if cfg.LogDir, err = util.ResolvePath(cfg.LogDir); err != nil {
		log.Errorf("failed to resolve log directory: %v", err)
		os.Exit(1)
	}

	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		os.Exit(1)
	}
	log.Debugf("msaauth Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	if err = cfg.Validate(); err != nil {
		log.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	options := &cmd.LoginOptions{
		NoBrowser:  noBrowser,
		NoListener: noListener,
		PrintURL:   printURL,
		CopyURL:    copyURL,
		JSON:       jsonOutput,
	}
	os.Exit(cmd.DoMinecraftLogin(cfg, options))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
