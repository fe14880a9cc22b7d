package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MatusOllah/slogcolor"
	"github.com/kabili207/vatsim-listing/internal/web"
	"github.com/kabili207/vatsim-listing/pkg/aviation"
	"github.com/kabili207/vatsim-listing/pkg/config"
	"github.com/kabili207/vatsim-listing/pkg/discord"
	"github.com/kabili207/vatsim-listing/pkg/listing"
	"github.com/kabili207/vatsim-listing/pkg/store"
	"github.com/kabili207/vatsim-listing/pkg/vatsim"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Error("invalid log level", "level", cfg.LogLevel, "error", err)
		os.Exit(1)
	}
	opts := *slogcolor.DefaultOptions
	opts.Level = level
	slog.SetDefault(slog.New(slogcolor.NewHandler(os.Stderr, &opts)))

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Configuration) error {
	airports := aviation.NewAirports(cfg.Aviation.AirportsPath)
	if err := airports.Load(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Users.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	client := vatsim.NewClient(cfg.Vatsim.DataURL, cfg.Vatsim.RequestTimeout)
	cache := vatsim.NewSnapshotCache(client)

	bot, err := discord.NewBot(cfg.Discord.Token, cfg.Discord.ApplicationID)
	if err != nil {
		return err
	}
	if err := bot.Open(); err != nil {
		return err
	}
	defer bot.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache.Start(ctx, cfg.Vatsim.RefreshInterval)

	var publishers []*listing.Publisher
	for _, guild := range cfg.Discord.Guilds {
		links := store.NewUserLinks(filepath.Join(cfg.Users.DataDir, fmt.Sprintf("users_%s.json", guild.GuildID)))
		links.StartAutoFlush(ctx, cfg.Users.SaveInterval)

		if err := bot.RegisterCommands(guild, links); err != nil {
			return err
		}

		renderer := listing.NewRenderer(airports)
		renderer.ShowFlights = guild.DisplayFlights
		renderer.ShowControllers = guild.DisplayControllers

		publisher := listing.NewPublisher(guild, links, bot, cache, renderer)
		publisher.Start(ctx, cfg.Discord.UpdateListingInterval)
		publishers = append(publishers, publisher)

		slog.Info("monitoring guild", "guild", guild.Name)
	}

	server := web.NewServer(cfg.ListenAddr, cache, publishers)
	go func() {
		if err := server.Run(ctx); err != nil {
			slog.Error("status server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
