package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"obsgrades/internal/components/configutil"
	"obsgrades/internal/components/telemetry"
	"obsgrades/internal/scrapers/obs"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	Username          string               `json:"username"`
	Password          string               `json:"password"`
	BaseUrl           string               `json:"base_url"`
	TimeoutSeconds    int                  `json:"timeout_seconds"`
	RequestsPerSecond float64              `json:"requests_per_second"`
	CloudflareBypass  bool                 `json:"cloudflare_bypass"`
	Otlp              telemetry.OtlpConfig `json:"otlp"`
}

var defaultConfig = Config{
	BaseUrl:           obs.DefaultBaseUrl,
	TimeoutSeconds:    int(obs.DefaultTimeout / time.Second),
	RequestsPerSecond: 2,
}

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfigWithDefaults(path, defaultConfig)
	if err != nil {
		return cfg, err
	}
	if cfg.Username == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("%s: username and password are required", path)
	}
	return cfg, nil
}

func clientOptions(cfg Config) (obs.Options, error) {
	opts := obs.Options{
		BaseUrl:           cfg.BaseUrl,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	}
	if dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return opts, err
		}
		opts.MessageOutput = output
	}
	return opts, nil
}

// configFile is --config when it was given, otherwise the closest config up
// from the working directory.
func configFile(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return configPath
	}
	found, err := configutil.FindConfig(".", configPath)
	if err != nil {
		return configPath
	}
	return found
}

// withSession reads the config, logs into OBS and runs fn with the logged in
// client. Telemetry is flushed when it returns, failures included.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, client *obs.Client) error) error {
	ctx := cmd.Context()
	path := configFile(cmd)
	cfg, err := readConfig(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	otel, err := telemetry.SetupOtel(ctx, "obsgrades", cfg.Otlp)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	var tel telemetry.API = telemetry.SlogAPI{}
	if otel.MeterProvider != nil {
		tel = telemetry.NewOtelAPI(tel, "obsgrades")
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return fmt.Errorf("create http dump directory: %w", err)
	}
	client, err := obs.NewClient(opts, tel)
	if err != nil {
		return fmt.Errorf("initialize obs client: %w", err)
	}

	slog.Info("logging in", "username", cfg.Username, "config", path)
	ok, err := client.Login(ctx, cfg.Username, cfg.Password, terminalSolver{})
	if err != nil {
		return fmt.Errorf("login to obs: %w", err)
	}
	if !ok {
		return errors.New("login to obs: wrong username, password or captcha code")
	}
	return fn(ctx, client)
}
