// ABOUTME: Terminal frontend for the widget conversation core
// ABOUTME: Readline-style chat loop with slash commands for support, votes, and reset

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/config"
	"github.com/yjar/chat-core/internal/controller"
	"github.com/yjar/chat-core/internal/feedback"
	"github.com/yjar/chat-core/internal/history"
	"github.com/yjar/chat-core/internal/session"
	"github.com/yjar/chat-core/internal/store"
	"github.com/yjar/chat-core/internal/submit"
)

// getConfigPath returns the path to the config file.
// Priority: --config flag > YJAR_CHAT_CONFIG env var > ~/.config/yjar-chat/config.yaml
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("YJAR_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "yjar-chat", "config.yaml")
}

// getDataPath returns the default location of the durable store.
// Priority: XDG_DATA_HOME/yjar-chat > ~/.local/share/yjar-chat
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "yjar-chat")
}

func main() {
	// Optional .env for API keys and base URLs
	_ = godotenv.Load()

	configFlag := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(getConfigPath(*configFlag))
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	kv := openStore(cfg, logger)
	defer kv.Close()

	sessions := session.New(kv, session.Config{
		IDKey:        cfg.Session.IDKey,
		CreatedAtKey: cfg.Session.CreatedAtKey,
		TTL:          cfg.Session.TTL,
	}, logger)

	client := api.New(cfg.API, logger)
	loader := history.New(client, logger)
	submitter := submit.New(client, client, cfg.Lead, cfg.Support, logger)
	ctrl := controller.New(sessions, client, loader, submitter, cfg, logger)
	recorder := feedback.New(client, ctrl, kv, logger)

	ctrl.Start(ctx)

	printWelcome()
	return repl(ctx, ctrl, recorder)
}

// openStore opens the SQLite store, falling back to an in-memory store
// when the path is unusable. The session manager handles later failures.
func openStore(cfg *config.Config, logger *slog.Logger) store.Store {
	path := cfg.Storage.Path
	if path == "" {
		path = filepath.Join(getDataPath(), "chat.db")
	}

	kv, err := store.NewSQLiteStore(path)
	if err != nil {
		logger.Warn("durable store unavailable, session will not survive restarts",
			"path", path, "error", err)
		return store.NewMemStore()
	}
	return kv
}

func printWelcome() {
	cyan := color.New(color.FgCyan)
	cyan.Println("YJAR Chat")
	fmt.Println("Schreib eine Nachricht, oder:")
	fmt.Println("  /support            Support-Ticket erstellen")
	fmt.Println("  /vote <nr> up|down  Antwort bewerten")
	fmt.Println("  /export <datei>     Verlauf als HTML exportieren")
	fmt.Println("  /reset              Neuer Chat")
	fmt.Println("  /quit               Beenden")
	fmt.Println()
}

// repl runs the interactive loop. Rendering tracks how many transcript
// messages have been printed so far and prints only the new tail after
// each action.
func repl(ctx context.Context, ctrl *controller.Controller, recorder *feedback.Recorder) error {
	scanner := bufio.NewScanner(os.Stdin)
	rendered := 0

	for {
		rendered = render(ctrl, recorder, rendered)
		promptForms(ctx, scanner, ctrl)
		rendered = render(ctrl, recorder, rendered)

		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, line, ctrl, recorder); quit {
				return nil
			}
			continue
		}

		ctrl.Send(ctx, line)
	}
}

// command handles a slash command. Returns true when the loop should end.
func command(ctx context.Context, line string, ctrl *controller.Controller, recorder *feedback.Recorder) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/reset":
		ctrl.Reset(ctx)
		fmt.Println("Neuer Chat gestartet.")

	case "/support":
		ctrl.OpenSupport()

	case "/yes":
		ctrl.ConfirmLead()

	case "/no":
		ctrl.DeclineLead()

	case "/vote":
		if len(fields) != 3 {
			color.Yellow("Usage: /vote <nr> up|down")
			return false
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil {
			color.Yellow("Usage: /vote <nr> up|down")
			return false
		}
		if err := recorder.Vote(ctx, index, api.Vote(fields[2])); err != nil {
			color.Red("Bewertung fehlgeschlagen: %v", err)
		} else {
			color.Green("Danke für die Bewertung!")
		}

	case "/export":
		if len(fields) != 2 {
			color.Yellow("Usage: /export <datei>")
			return false
		}
		if err := exportTranscript(ctrl.Snapshot(), fields[1]); err != nil {
			color.Red("Export fehlgeschlagen: %v", err)
		} else {
			color.Green("Verlauf exportiert: %s", fields[1])
		}

	default:
		color.Yellow("Unbekannter Befehl: %s", fields[0])
	}

	return false
}

// render prints transcript messages that have not been printed yet and
// returns the new high-water mark.
func render(ctrl *controller.Controller, recorder *feedback.Recorder, from int) int {
	snap := ctrl.Snapshot()
	userColor := color.New(color.FgCyan)
	botColor := color.New(color.FgGreen)

	for i := from; i < len(snap.Messages); i++ {
		m := snap.Messages[i]
		if m.Role == api.RoleUser {
			userColor.Printf("[%d] Sie: ", i)
		} else {
			botColor.Printf("[%d] Assistent: ", i)
			if recorder.Sent(i) {
				color.New(color.Faint).Print("(bewertet) ")
			}
		}
		fmt.Println(m.Content)
	}
	return len(snap.Messages)
}

// promptForms walks the user through whichever form the controller has
// open. The lead confirmation gate is answered with /yes or /no in the
// main loop, so only the two forms prompt here.
func promptForms(ctx context.Context, scanner *bufio.Scanner, ctrl *controller.Controller) {
	switch ctrl.Snapshot().Mode {
	case controller.ModeAwaitingLeadConfirmation:
		color.Yellow("Antworten Sie mit /yes oder /no.")

	case controller.ModeLeadFormOpen:
		form := submit.LeadForm{
			Name:    ask(scanner, "Name: "),
			Email:   ask(scanner, "E-Mail: "),
			Phone:   ask(scanner, "Telefon (optional): "),
			Consent: askYesNo(scanner, "Einverständnis zur Kontaktaufnahme? (j/n): "),
		}
		ctrl.SetLeadDraft(form)
		if err := ctrl.SubmitLead(ctx); err != nil {
			color.Red("%v", err)
		}

	case controller.ModeSupportFormOpen:
		form := submit.SupportForm{
			Name:    ask(scanner, "Name: "),
			Email:   ask(scanner, "E-Mail (optional wenn Telefon): "),
			Phone:   ask(scanner, "Telefon (optional wenn E-Mail): "),
			Consent: askYesNo(scanner, "Einverständnis zur Kontaktaufnahme? (j/n): "),
		}
		ctrl.SetSupportDraft(form)
		if err := ctrl.SubmitSupport(ctx); err != nil {
			color.Red("%v", err)
		}
	}
}

func ask(scanner *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func askYesNo(scanner *bufio.Scanner, prompt string) bool {
	answer := strings.ToLower(ask(scanner, prompt))
	return answer == "j" || answer == "ja" || answer == "y" || answer == "yes"
}

// setupLogging builds the slog handler from config. JSON goes to stdout
// for log shippers; text goes to stderr to stay out of the chat output.
func setupLogging(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
