package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/database"
	"ai-diet-planner/internal/dietitian"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/metrics"
	"ai-diet-planner/internal/pdf"
	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
)

func main() {
	_ = godotenv.Load()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "plan":
		runPlan(ctx, cfg, os.Args[2:])
	case "chat":
		runChat(ctx, cfg)
	case "metrics-cleanup":
		runMetricsCleanup(cfg, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runPlan turns a saved transcript into a rendered plan in one shot.
func runPlan(ctx context.Context, cfg *config.Config, args []string) {
	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	transcriptPath := planCmd.String("transcript", "", "Path to a saved conversation transcript")
	outPath := planCmd.String("out", "meal_plan.pdf", "Output PDF path")
	planCmd.Parse(args)

	if *transcriptPath == "" {
		fmt.Println("plan requires -transcript")
		planCmd.Usage()
		os.Exit(1)
	}

	transcript, err := readTranscript(*transcriptPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read transcript")
	}

	gen, cleanup := mustGenerator(ctx, cfg)
	defer cleanup()

	p, _, err := profile.NewExtractor(gen).Extract(ctx, transcript)
	var incomplete *profile.IncompleteError
	if errors.As(err, &incomplete) {
		fmt.Println("The conversation does not cover everything needed for a plan.")
		fmt.Printf("Still missing: %s\n", strings.Join(incomplete.Missing, ", "))
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("profile extraction failed")
	}

	week, _, err := plan.NewPlanner(gen).Generate(ctx, p)
	if err != nil {
		log.Fatal().Err(err).Msg("plan generation failed")
	}

	out, err := pdf.Render(p, week)
	if err != nil {
		log.Fatal().Err(err).Msg("pdf rendering failed")
	}
	if err := os.WriteFile(*outPath, out, 0644); err != nil {
		log.Fatal().Err(err).Msg("failed to write pdf")
	}
	fmt.Printf("Wrote %s (%d kcal/day target)\n", *outPath, week.Targets.Calories)
}

// runChat runs the intake conversation on stdin. Type /plan to generate,
// /quit to leave.
func runChat(ctx context.Context, cfg *config.Config) {
	gen, cleanup := mustGenerator(ctx, cfg)
	defer cleanup()

	d := dietitian.New(gen)
	extractor := profile.NewExtractor(gen)
	planner := plan.NewPlanner(gen)

	var transcript []llm.Message
	fmt.Println("Chat with the dietitian. /plan writes meal_plan.pdf, /quit exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/plan":
			p, _, err := extractor.Extract(ctx, transcript)
			var incomplete *profile.IncompleteError
			if errors.As(err, &incomplete) {
				fmt.Printf("I still need: %s\n", strings.Join(incomplete.Missing, ", "))
				continue
			}
			if err != nil {
				fmt.Printf("Could not build your profile: %v\n", err)
				continue
			}
			week, _, err := planner.Generate(ctx, p)
			if err != nil {
				fmt.Printf("Plan generation failed: %v\n", err)
				continue
			}
			out, err := pdf.Render(p, week)
			if err != nil {
				fmt.Printf("Rendering failed: %v\n", err)
				continue
			}
			if err := os.WriteFile("meal_plan.pdf", out, 0644); err != nil {
				fmt.Printf("Could not write meal_plan.pdf: %v\n", err)
				continue
			}
			fmt.Println("Wrote meal_plan.pdf")
		default:
			reply, _, err := d.Chat(ctx, transcript, line)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			transcript = append(transcript,
				llm.Message{Role: llm.RoleUser, Content: line},
				llm.Message{Role: llm.RoleAssistant, Content: reply},
			)
			fmt.Println(reply)
		}
	}
}

func runMetricsCleanup(cfg *config.Config, args []string) {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	affected, err := metrics.NewStore(db.SQL).Cleanup(*days)
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup failed")
	}
	fmt.Printf("Removed %d old metric records.\n", affected)
}

// readTranscript parses a plain text transcript. Lines starting with
// "Dietitian:" are the assistant side; everything else is the user.
func readTranscript(path string) ([]llm.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var transcript []llm.Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Dietitian:"); ok {
			transcript = append(transcript, llm.Message{Role: llm.RoleAssistant, Content: strings.TrimSpace(rest)})
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "User:"))
		transcript = append(transcript, llm.Message{Role: llm.RoleUser, Content: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(transcript) == 0 {
		return nil, fmt.Errorf("transcript %s is empty", path)
	}
	return transcript, nil
}

func mustGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, func()) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg), func() {}
	default:
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize model client")
		}
		return client, func() { _ = client.Close() }
	}
}

func printUsage() {
	fmt.Println("Usage: diet-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  chat               Interactive intake conversation on stdin")
	fmt.Println("  plan               Build a plan PDF from a saved transcript (-transcript, -out)")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days)")
}
