package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tatianab/selma/internal/config"
	"github.com/tatianab/selma/internal/engine"
	"github.com/tatianab/selma/internal/loader"
	"github.com/tatianab/selma/internal/models"
	"github.com/tatianab/selma/internal/narrate"
	"github.com/tatianab/selma/internal/persistence"
)

func main() {
	steps := flag.Int("steps", 20, "number of steps to simulate")
	why := flag.Int("why", 2, "depth of the causal tree printed for the final event")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: simulate_story [-steps n] [-why depth] story.yaml...")
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	seed := cfg.RunSeed()
	opts := engine.Options{
		Seed:            seed,
		DrawDeckSize:    cfg.DrawDeckSize,
		MaxDrawAttempts: cfg.MaxDrawAttempts,
		Debug:           cfg.Debug,
		Logger:          logger,
	}
	if cfg.AllowOutput {
		opts.Output = os.Stdout
	}
	sim := engine.New(opts)

	if cfg.EventLogDir != "" {
		eventLog := persistence.NewEventLog(cfg.EventLogDir, persistence.NewRunID())
		defer eventLog.Close()
		sim.AddSink(eventLog)
		fmt.Printf("Event log: %s\n", eventLog.Path())
	}

	stories, err := loader.LoadInto(sim, sim.Registry(), flag.Args()...)
	if err != nil {
		log.Fatalf("Failed to load stories: %v", err)
	}

	var narrator narrate.Narrator = narrate.Template{}
	if cfg.Narrator == config.NarratorGemini {
		g, err := narrate.NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create narrator: %v", err)
		}
		defer g.Close()
		narrator = g
	}

	fmt.Printf("--- Simulating %d steps of %d stories (seed %d) ---\n\n", *steps, len(stories), seed)

	for sim.Steps() < *steps {
		ev, err := sim.Step()
		if err != nil {
			fmt.Printf("Step failed: %v\n", err)
			break
		}
		causes := narrate.Causes(sim.Events(), ev)

		fmt.Print(describeEvent(ev, causes))

		text, err := narrator.Narrate(ctx, ev, causes)
		if err != nil {
			fmt.Printf("Narration failed: %v\n", err)
			text = ev.Text
		}
		fmt.Printf("%s\n\n", text)
	}

	last, ok := sim.LastEvent()
	if !ok {
		return
	}
	node, err := sim.Explain(last.ID, *why)
	if err != nil {
		log.Fatalf("Failed to explain event %d: %v", last.ID, err)
	}
	fmt.Println("--- Why did the last event happen? ---")
	fmt.Println(node.Format())
}

// describeEvent lists the event's card, roles, modified values (sorted by
// path) and causes, one per line.
func describeEvent(ev models.Event, causes []narrate.Cause) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Event %d: %s ---\n", ev.ID, ev.CardName)
	if len(ev.Roles) > 0 {
		roles := make([]string, len(ev.Roles))
		for i, r := range ev.Roles {
			roles[i] = r.Role + "=" + r.Character
		}
		fmt.Fprintf(&b, "Roles: %s\n", strings.Join(roles, ", "))
	}
	for _, path := range slices.Sorted(maps.Keys(ev.ValuesModified)) {
		fmt.Fprintf(&b, "Modified: %s %+g\n", path, ev.ValuesModified[path])
	}
	for _, c := range causes {
		fmt.Fprintf(&b, "Caused by: [%d] %s (%.2f)\n", c.ID, c.CardName, c.Weight)
	}
	return b.String()
}
