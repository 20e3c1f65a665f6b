package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/triageapi"
	"github.com/setuhealth/setu/backend/internal/intake"
)

func main() {
	var apiURL, language, rulesFile string
	var verbose bool
	flag.StringVar(&apiURL, "api", envOr("SETU_API_URL", "http://localhost:5000"), "base URL of the Setu API")
	flag.StringVar(&language, "lang", "en-US", "consultation language (en-US or hi-IN)")
	flag.StringVar(&rulesFile, "rules", "", "severity rules YAML used when the API is unreachable")
	flag.BoolVar(&verbose, "v", false, "log gateway failures")
	flag.Parse()

	level := zerolog.ErrorLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := triageapi.NewClient(apiURL)
	rules := services.DefaultSeverityRules()
	if rulesFile != "" {
		loaded, err := services.LoadSeverityRules(rulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", rulesFile).Msg("failed to load severity rules")
		}
		rules = loaded
	}
	machine := intake.NewMachine(intake.Config{Classify: rules.Classify})

	session := intake.NewSession(ctx, machine, client,
		intake.WithSpeaker(&terminalSpeaker{out: os.Stdout}),
		intake.WithRegistry(client),
		intake.WithLocale(entities.ParseLocale(language)),
	)
	defer session.Close()

	fmt.Fprintln(os.Stdout, "Setu consultation. Commands: /lang <en-US|hi-IN>, /reset, /quit")
	if err := run(ctx, session, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consultation ended")
		os.Exit(1)
	}
}

// run drives the session from typed lines until input ends or /quit
func run(ctx context.Context, session *intake.Session, in io.Reader, out io.Writer) error {
	if err := session.Start(); err != nil {
		return err
	}
	session.Wait()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	printed := false
	for {
		if state := session.State(); state.Stage == intake.StageReport && !printed {
			printReport(out, state.Report)
			fmt.Fprintln(out, "Press enter to ask follow-up questions.")
			printed = true
		}
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		quit, err := handleLine(session, line)
		if quit {
			return nil
		}
		if err != nil {
			if errors.Is(err, intake.ErrInvalidTransition) {
				fmt.Fprintln(out, "(not now)")
				continue
			}
			return err
		}
		if session.State().Stage == intake.StageNotStarted {
			printed = false
			if err := session.Start(); err != nil {
				return err
			}
		}
		session.Wait()
	}
}

func handleLine(session *intake.Session, line string) (bool, error) {
	switch {
	case line == "/quit":
		return true, nil
	case line == "/reset":
		return false, session.Reset()
	case strings.HasPrefix(line, "/lang"):
		return false, session.SetLocale(entities.ParseLocale(strings.TrimSpace(strings.TrimPrefix(line, "/lang"))))
	}

	switch session.State().Stage {
	case intake.StageReport:
		return false, session.ContinueChat()
	case intake.StageGenerating:
		return false, nil
	}
	if line == "" {
		return false, nil
	}
	return false, session.Accept(line)
}

func printReport(out io.Writer, report *entities.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(out, "\n=== Report (severity: %s) ===\n%s\n", report.Severity, report.Summary)
	printList(out, "Possible conditions", report.PossibleConditions)
	printList(out, "Recommendations", report.Recommendations)
	printList(out, "Medications", report.Medications)
	printList(out, "Next steps", report.NextSteps)
	if !report.AIPowered {
		fmt.Fprintln(out, "(generated without AI)")
	}
	fmt.Fprintln(out)
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}

// terminalSpeaker prints utterances instead of synthesizing them
type terminalSpeaker struct {
	out io.Writer
}

func (s *terminalSpeaker) Speak(ctx context.Context, text string, _ entities.Locale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.out, "Setu: %s\n", text)
	return err
}

func (s *terminalSpeaker) Cancel() {}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
