// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/poiesic/curator"
	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/coordinator"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/storage"
	"github.com/poiesic/curator/storage/badger"
)

// logFile is the rotating log sink opened by setupLogger, if any.
var logFile io.Closer

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: required,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "curator",
		Usage: "Collect agricultural documents from web search with concurrent learning agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to this file, rotated at 15 MB",
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run a curation and append entries to a JSONL file",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "TOML configuration file; flags override its values",
					},
					dbFlag(false),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "JSONL output file",
						Value:   curator.DefaultOutput,
					},
					&cli.StringFlag{
						Name:  "knowledge",
						Usage: "YAML knowledge base replacing the built-in taxonomy",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Search source (ddg, news, mixed)",
						Value: curator.SourceDDG,
					},
					&cli.Float64Flag{
						Name:  "rps",
						Usage: "Search requests per second across all agents",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "agents",
						Usage: "Number of agents",
					},
					&cli.IntFlag{
						Name:  "searches",
						Usage: "Searches per agent",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum concurrently running agents",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Query strategy (static, adaptive, llm; llm needs --llm-host)",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum relevance score of an entry",
					},
					&cli.BoolFlag{
						Name:  "no-learning",
						Usage: "Rotate query patterns instead of weighting them by success",
					},
					&cli.BoolFlag{
						Name:  "share-learning",
						Usage: "Merge learning across agents during the run",
					},
					&cli.Int64Flag{
						Name:  "max-entries",
						Usage: "Stop once this many entries were collected",
					},
					&cli.DurationFlag{
						Name:  "max-duration",
						Usage: "Stop after this wall-clock time",
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Skip URLs and continue learning from earlier runs (requires --db)",
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed for reproducible query sampling",
					},
					&cli.BoolFlag{
						Name:  "fetch-pages",
						Usage: "Download result pages for their full text",
					},
					&cli.StringFlag{
						Name:  "llm-host",
						Usage: "OpenAI-compatible host used to score relevance; keyword scoring only when empty",
					},
					&cli.StringFlag{
						Name:  "llm-model",
						Usage: "Model name for LLM relevance scoring",
						Value: "gemma3:1b",
					},
					&cli.StringFlag{
						Name:    "llm-token",
						Usage:   "API key for the LLM host",
						EnvVars: []string{"CURATOR_LLM_TOKEN"},
					},
					&cli.Float64Flag{
						Name:  "llm-weight",
						Usage: "Share of the LLM score in the blended relevance score",
						Value: 0.7,
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print progress",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List persisted run summaries",
				Action: runsCommand,
				Flags: []cli.Flag{
					dbFlag(true),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 10,
					},
				},
			},
			{
				Name:   "learning",
				Usage:  "Show the persisted learning state of every agent",
				Action: learningCommand,
				Flags: []cli.Flag{
					dbFlag(true),
					&cli.IntFlag{
						Name:  "top",
						Usage: "Patterns shown per agent",
						Value: 5,
					},
				},
			},
			{
				Name:   "seen",
				Usage:  "Show or reset the persisted seen-set",
				Action: seenCommand,
				Flags: []cli.Flag{
					dbFlag(true),
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Remove every URL from the seen-set",
					},
				},
			},
		},
	}
}

// loadConfig builds the run configuration from the optional file and the
// flags that were set explicitly.
func loadConfig(c *cli.Context) (*config.RunConfig, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("agents") {
		cfg.NumAgents = c.Int("agents")
	}
	if c.IsSet("searches") {
		cfg.SearchesPerAgent = c.Int("searches")
	}
	if c.IsSet("concurrency") {
		cfg.MaxConcurrentAgents = c.Int("concurrency")
	}
	if c.IsSet("strategy") {
		s, err := core.ParseStrategy(c.String("strategy"))
		if err != nil {
			return nil, &core.ConfigError{Field: "strategy", Err: err}
		}
		cfg.Strategy = s
	}
	if c.IsSet("threshold") {
		cfg.RelevanceThreshold = c.Float64("threshold")
	}
	if c.Bool("no-learning") {
		cfg.EnableLearning = false
	}
	if c.Bool("share-learning") {
		cfg.ShareLearning = true
	}
	if c.IsSet("max-entries") {
		cfg.MaxEntries = c.Int64("max-entries")
	}
	if c.IsSet("max-duration") {
		cfg.MaxDuration = c.Duration("max-duration")
	}
	if c.Bool("resume") {
		cfg.Resume = true
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}

	if cfg.Resume && c.String("db") == "" {
		return nil, &core.ConfigError{Field: "resume", Err: fmt.Errorf("--resume needs --db")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []curator.Option{
		curator.WithDataDir(c.String("db")),
		curator.WithOutput(c.String("output")),
		curator.WithSource(c.String("source")),
		curator.WithRateLimit(c.Float64("rps"), 2),
		curator.WithPageFetch(c.Bool("fetch-pages")),
	}
	if path := c.String("knowledge"); path != "" {
		kb, err := knowledge.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load knowledge base: %w", err)
		}
		opts = append(opts, curator.WithKnowledge(kb))
	}
	if host := c.String("llm-host"); host != "" {
		opts = append(opts, curator.WithAI(ai.NewConfig(
			ai.WithHost(host),
			ai.WithModel(c.String("llm-model")),
			ai.WithToken(c.String("llm-token")),
			ai.WithWeight(c.Float64("llm-weight")),
		)))
	}
	if !c.Bool("quiet") {
		tracker := coordinator.NewProgressTracker(os.Stderr, int64(cfg.NumAgents*cfg.SearchesPerAgent))
		opts = append(opts, curator.WithReporter(func(s core.RunStats) {
			if s.StopReason != "" {
				tracker.Finish(s)
				return
			}
			tracker.Report(s)
		}))
	}

	cur, err := curator.Open(cfg, opts...)
	if err != nil {
		return err
	}
	defer cur.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Output: %s\n", c.String("output"))
	fmt.Fprintf(os.Stderr, "Agents: %d (%d concurrent), %d searches each, %s strategy\n",
		cfg.NumAgents, cfg.MaxConcurrentAgents, cfg.SearchesPerAgent, cfg.Strategy)
	fmt.Fprintln(os.Stderr)

	stats, err := cur.Run(ctx)
	printRun(os.Stdout, &stats, true)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

func printRun(w io.Writer, s *core.RunStats, detail bool) {
	fmt.Fprintf(w, "Run %s  %s  %s\n", s.RunID, s.StartedAt.Local().Format(time.DateTime), s.StopReason)
	fmt.Fprintf(w, "  entries: %d  unique urls: %d  unique domains: %d  searches: %d  elapsed: %s\n",
		s.EntriesCollected, s.UniqueURLs, s.UniqueDomains, s.SearchesIssued, s.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "  retries: %d  fetch failures: %d  extract failures: %d  duplicates: %d  below threshold: %d\n",
		s.Retries, s.FetchFailures, s.ExtractFailures, s.Duplicates, s.BelowThreshold)
	if s.Aborted {
		fmt.Fprintf(w, "  aborted: %s\n", s.AbortReason)
	}
	if !detail {
		return
	}
	for _, a := range s.Agents {
		fmt.Fprintf(w, "  %-9s %-40s %-10s searches=%d entries=%d failures=%d",
			a.AgentID, a.Specialization, a.FinalState, a.Searches, a.Entries, a.FetchFailures)
		if len(a.TopDomains) > 0 {
			fmt.Fprintf(w, " top=%s", strings.Join(a.TopDomains, ","))
		}
		fmt.Fprintln(w)
	}
}

func openRepositories(c *cli.Context) (storage.Repositories, error) {
	repos, err := badger.Open(c.String("db"), slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repos, nil
}

func runsCommand(c *cli.Context) error {
	repos, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer repos.Close()

	runs, err := repos.Runs().ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		printRun(os.Stdout, r, false)
	}
	return nil
}

func learningCommand(c *cli.Context) error {
	repos, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer repos.Close()

	snaps, err := repos.Learning().ListSnapshots(c.Context)
	if err != nil {
		return err
	}
	top := c.Int("top")
	for _, snap := range snaps {
		fmt.Printf("%s (updated %s)\n", snap.AgentID, snap.UpdatedAt.Local().Format(time.DateTime))
		type row struct {
			key  string
			rate float64
			n    int
		}
		rows := make([]row, 0, len(snap.Patterns))
		for k, p := range snap.Patterns {
			rows = append(rows, row{key: k.String(), rate: p.SuccessRate(), n: p.Queries})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].rate != rows[j].rate {
				return rows[i].rate > rows[j].rate
			}
			return rows[i].key < rows[j].key
		})
		if top > 0 && len(rows) > top {
			rows = rows[:top]
		}
		for _, r := range rows {
			fmt.Printf("  %-50s success=%.2f queries=%d\n", r.key, r.rate, r.n)
		}
	}
	return nil
}

func seenCommand(c *cli.Context) error {
	repos, err := openRepositories(c)
	if err != nil {
		return err
	}
	defer repos.Close()

	if c.Bool("reset") {
		if err := repos.Seen().ClearSeen(c.Context); err != nil {
			return err
		}
		fmt.Println("Seen-set cleared.")
		return nil
	}
	n, err := repos.Seen().CountSeen(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("%d URLs seen\n", n)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	var out io.Writer = os.Stderr
	if path := c.String("log-file"); path != "" {
		f := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func closeLogger(_ *cli.Context) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
