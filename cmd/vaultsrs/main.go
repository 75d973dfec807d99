package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/vaultsrs/internal/config"
	"github.com/conorfennell/vaultsrs/internal/domain"
	"github.com/conorfennell/vaultsrs/internal/fsrs"
	"github.com/conorfennell/vaultsrs/internal/gitsource"
	"github.com/conorfennell/vaultsrs/internal/index"
	"github.com/conorfennell/vaultsrs/internal/queue"
	"github.com/conorfennell/vaultsrs/internal/review"
	"github.com/conorfennell/vaultsrs/internal/stats"
	"github.com/conorfennell/vaultsrs/internal/store"
	"github.com/conorfennell/vaultsrs/internal/vault"
)

func main() {
	if err := run(); err != nil {
		slog.Error("vaultsrs failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()

	flags := pflag.NewFlagSet("vaultsrs", pflag.ExitOnError)
	configPath := flags.String("config", "vaultsrs.yaml", "path to the config file")
	flags.String("vault", defaults.VaultDir, "vault directory to scan")
	flags.String("db", defaults.DBPath, "path to the SQLite state database")
	flags.String("deck_tag", defaults.DeckTag, "tag that marks a document as a deck")
	flags.String("log_level", defaults.LogLevel, "log level: debug, info, warn, error")

	doSync := flags.Bool("sync", false, "clone or pull the configured git vault before scanning")
	showQueue := flags.Bool("queue", false, "print the current review queue")
	showStats := flags.Bool("stats", false, "print deck statistics, forecast, and retention")
	deckID := flags.String("deck", "", "restrict --queue to one deck")
	rateCard := flags.String("rate", "", "card id to rate")
	rating := flags.String("rating", "good", "rating for --rate: again, hard, good, easy")
	historyCard := flags.String("history", "", "card id to print review history for")
	doReset := flags.Bool("reset", false, "delete all scheduling state and review history")
	_ = flags.Parse(os.Args[1:])

	// Action flags like --queue would shadow config sections, so only the
	// settings flags are handed to the config loader.
	cfgFlags := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	for _, name := range []string{"vault", "db", "deck_tag", "log_level"} {
		cfgFlags.AddFlag(flags.Lookup(name))
	}

	cfg, err := config.Load(*configPath, cfgFlags)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *doSync && cfg.Git.URL != "" {
		if err := gitsource.Sync(ctx, cfg.Git.URL, cfg.VaultDir, cfg.Git.Branch, nil); err != nil {
			return err
		}
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if *doReset {
		if err := st.ResetAll(ctx); err != nil {
			return err
		}
		fmt.Println("All scheduling state and review history deleted.")
		return nil
	}

	docs, err := vault.NewScanner(cfg.VaultDir, cfg.DeckTag, nil).Scan(ctx)
	if err != nil {
		return err
	}

	idx := index.New(st, nil)
	if err := idx.RebuildFull(ctx, docs); err != nil {
		return err
	}
	now := time.Now()
	if err := idx.RecalculateStats(ctx, now); err != nil {
		return err
	}

	engine, err := fsrs.New(fsrs.Params{
		RequestRetention: cfg.FSRS.RequestRetention,
		MaximumInterval:  cfg.FSRS.MaximumInterval,
	})
	if err != nil {
		return err
	}
	svc := review.NewService(engine, st, idx, nil)

	switch {
	case *rateCard != "":
		return rate(ctx, svc, *rateCard, *rating, now)
	case *historyCard != "":
		return printHistory(ctx, svc, *historyCard)
	case *showQueue:
		builder := queue.NewBuilder(idx, st)
		return printQueue(ctx, svc, builder, now, queue.Options{
			DeckID: *deckID,
			MaxDue: cfg.Queue.MaxDue,
			MaxNew: cfg.Queue.MaxNew,
		})
	case *showStats:
		return printStats(ctx, idx, stats.NewReporter(st), now)
	default:
		printDecks(idx)
		return nil
	}
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func rate(ctx context.Context, svc *review.Service, cardID, ratingName string, now time.Time) error {
	r, err := parseRating(ratingName)
	if err != nil {
		return err
	}
	state, err := svc.Rate(ctx, cardID, r, now)
	if err != nil {
		return err
	}
	fmt.Printf("Rated %s %s: next due %s (%s)\n",
		cardID, r, state.Due.Format(time.RFC3339), state.Phase)
	return nil
}

func printHistory(ctx context.Context, svc *review.Service, cardID string) error {
	events, err := svc.History(ctx, cardID, 0)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Printf("No reviews recorded for %s.\n", cardID)
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-5s  %s\n", ev.Timestamp.Format(time.RFC3339), ev.Rating, ev.CardID)
	}
	return nil
}

func printQueue(ctx context.Context, svc *review.Service, builder *queue.Builder, now time.Time, opts queue.Options) error {
	items, err := builder.Build(ctx, now, opts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Nothing to review.")
		return nil
	}
	for _, item := range items {
		kind := "due"
		if item.State == nil {
			kind = "new"
		}
		fmt.Printf("[%s] %s\n    %s\n", kind, item.Card.ID, firstLine(item.Card.Front))
		if intervals, err := svc.Preview(ctx, item.Card.ID, now); err == nil {
			fmt.Printf("    again %s | hard %s | good %s | easy %s\n",
				intervals[domain.Again], intervals[domain.Hard],
				intervals[domain.Good], intervals[domain.Easy])
		}
	}
	fmt.Printf("%d cards in queue.\n", len(items))
	return nil
}

func printStats(ctx context.Context, idx *index.DeckIndex, reporter *stats.Reporter, now time.Time) error {
	printDecks(idx)

	forecast, err := reporter.Forecast(ctx, now, 7)
	if err != nil {
		return err
	}
	fmt.Println("\nDue forecast:")
	for _, day := range forecast {
		fmt.Printf("  %s  %d\n", day.Day.Format("2006-01-02"), day.Count)
	}

	activity, err := reporter.Activity(ctx, now, 7)
	if err != nil {
		return err
	}
	fmt.Println("\nReviews per day:")
	for _, day := range activity {
		fmt.Printf("  %s  %d\n", day.Day.Format("2006-01-02"), day.Count)
	}

	retention, ok, err := reporter.Retention(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("\nRetention: %.1f%%\n", retention*100)
	}
	return nil
}

func printDecks(idx *index.DeckIndex) {
	decks := idx.Decks()
	if len(decks) == 0 {
		fmt.Println("No decks found.")
		return
	}
	fmt.Printf("%-40s %5s %5s %9s\n", "DECK", "NEW", "DUE", "LEARNING")
	for _, d := range decks {
		fmt.Printf("%-40s %5d %5d %9d\n", d.Title, d.Stats.New, d.Stats.Due, d.Stats.Learning)
	}
	diag := idx.Diagnostics()
	if diag.Malformed > 0 || diag.Collisions > 0 {
		fmt.Printf("\n%d malformed blocks, %d identity collisions.\n", diag.Malformed, diag.Collisions)
	}
}

func parseRating(name string) (domain.Rating, error) {
	switch strings.ToLower(name) {
	case "again":
		return domain.Again, nil
	case "hard":
		return domain.Hard, nil
	case "good":
		return domain.Good, nil
	case "easy":
		return domain.Easy, nil
	}
	return 0, fmt.Errorf("parsing rating %q: %w", name, domain.ErrInvalidRating)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
