package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tatianab/selma/internal/config"
	"github.com/tatianab/selma/internal/engine"
	"github.com/tatianab/selma/internal/loader"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/narrate"
	"github.com/tatianab/selma/internal/persistence"
	"github.com/tatianab/selma/internal/tui"
)

func main() {
	restore := flag.String("restore", "", "name of a saved snapshot to resume")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: selma [-restore name] story.yaml...")
		os.Exit(2)
	}

	if err := run(*restore, flag.Args()); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(restore string, paths []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logFile, err := tea.LogToFile(cfg.LogFile, "selma")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// The alternate screen owns the terminal, so print output goes to the log.
	var output io.Writer
	if cfg.AllowOutput {
		output = logFile
	}

	runID := persistence.NewRunID()
	seed := cfg.RunSeed()
	var sinks []engine.EventSink

	if cfg.EventLogDir != "" {
		eventLog := persistence.NewEventLog(cfg.EventLogDir, runID)
		defer eventLog.Close()
		sinks = append(sinks, eventLog)
	}

	var store *persistence.Store
	if cfg.DBPath != "" {
		store, err = persistence.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	sim := engine.New(engine.Options{
		Seed:            seed,
		DrawDeckSize:    cfg.DrawDeckSize,
		MaxDrawAttempts: cfg.MaxDrawAttempts,
		Debug:           cfg.Debug,
		Output:          output,
		Logger:          logger,
	})

	stories, err := loader.LoadInto(sim, sim.Registry(), paths...)
	if err != nil {
		return fmt.Errorf("loading stories: %w", err)
	}
	title := storyTitle(stories)

	if restore != "" {
		snap, err := persistence.LoadSnapshot(cfg.SaveDir, restore)
		if err != nil {
			return err
		}
		if err := sim.Restore(snap); err != nil {
			return fmt.Errorf("restoring %s: %w", restore, err)
		}
		logger.Info("restored snapshot", "name", restore, "from_run", snap.RunID, "steps", snap.Steps)
	}

	if store != nil {
		w, err := store.BeginRun(persistence.Run{ID: runID, Title: title, Seed: seed})
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}
	for _, sink := range sinks {
		sim.AddSink(sink)
	}

	narrator, closeNarrator, err := newNarrator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating narrator: %w", err)
	}
	defer closeNarrator()

	logger.Info("run started", "run", runID, "seed", seed, "stories", len(stories))
	return tui.Run(sim, narrator, tui.Session{Title: title, RunID: runID, SaveDir: cfg.SaveDir})
}

func newNarrator(ctx context.Context, cfg *config.Config) (narrate.Narrator, func(), error) {
	if cfg.Narrator != config.NarratorGemini {
		return narrate.Template{}, func() {}, nil
	}
	g, err := narrate.NewGemini(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, err
	}
	return g, g.Close, nil
}

func storyTitle(stories []*models.Story) string {
	var titles []string
	for _, s := range stories {
		if s.Title != "" {
			titles = append(titles, s.Title)
		}
	}
	return strings.Join(titles, " / ")
}
