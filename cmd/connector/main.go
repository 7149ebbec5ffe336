// World Connector headless client: runs the reactive core against a backend
// over its HTTP and websocket surface, with a line-based prompt standing in
// for the browser views.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"worldconnector/internal/app"
	"worldconnector/internal/client"
	"worldconnector/internal/config"
	"worldconnector/internal/domain"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConnector()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Connecting", "server", cfg.ServerURL, "exchange", cfg.BootstrapCredential != "")

	// The signed-out callback feeds back into the session manager, which does
	// not exist until the core is assembled below. Sign-in happens only after
	// Start, so the callback never fires before the assignment.
	var core *app.App
	backend := client.Backend{Client: client.New(client.Config{
		ServerURL: cfg.ServerURL,
		OnSignedOut: func() {
			if core != nil {
				core.Session.HandleSignedOut()
			}
		},
	})}
	core = app.New(backend, backend, cfg.BootstrapCredential)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core.Start(ctx)
	defer core.Close()

	watchViews(core)

	go readCommands(ctx, core, stop)

	<-ctx.Done()
	fmt.Println("bye")
}

// watchViews prints one line per state change, the terminal stand-in for
// re-rendering the active screen.
func watchViews(core *app.App) {
	core.Session.Identity().Watch(func(identity string) {
		if identity != "" {
			fmt.Printf("* signed in as %s\n", identity)
		}
	})

	core.Router.Active().Watch(func(screen domain.Screen) {
		fmt.Printf("* screen: %s\n", screen)
	})

	core.Profiles.Own().Watch(func(profile *domain.Profile) {
		if profile == nil {
			return
		}
		fmt.Printf("* my profile: %s | %s %v\n", profile.NameOrFallback(), profile.Bio, profile.Interests)
	})

	core.Profiles.Others().Watch(func(others []*domain.Profile) {
		if others == nil {
			return
		}
		names := make([]string, len(others))
		for i, p := range others {
			names[i] = p.NameOrFallback()
		}
		fmt.Printf("* discover: %d profile(s) %v\n", len(others), names)
	})

	core.Chat.Timeline().Watch(func(messages []*domain.ChatMessage) {
		if len(messages) == 0 {
			return
		}
		last := messages[len(messages)-1]
		fmt.Printf("* chat (%d): [%s] %s: %s\n",
			len(messages), last.CreatedAt.Format("15:04:05"), last.AuthorName, last.Body)
	})
}

// readCommands drives the core from stdin: slash commands switch screens and
// save the profile, anything else goes to the chat. EOF shuts the host down.
func readCommands(ctx context.Context, core *app.App, stop func()) {
	defer stop()

	fmt.Println("commands: /screen profile|discover|chat, /save name | bio | interests, /quit; plain text chats")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/screen "):
			core.Router.Activate(domain.Screen(strings.TrimSpace(strings.TrimPrefix(line, "/screen "))))
		case strings.HasPrefix(line, "/save "):
			saveProfile(ctx, core, strings.TrimPrefix(line, "/save "))
		default:
			sendMessage(ctx, core, line)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("stdin read failed", "error", err)
	}
}

func saveProfile(ctx context.Context, core *app.App, args string) {
	parts := strings.SplitN(args, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	name := strings.TrimSpace(parts[0])
	bio := strings.TrimSpace(parts[1])

	if err := core.Profiles.SaveProfile(ctx, name, bio, parts[2]); err != nil {
		fmt.Printf("! profile save failed: %v\n", err)
		return
	}
	fmt.Println("* profile saved")
}

func sendMessage(ctx context.Context, core *app.App, text string) {
	core.Chat.SetDraft(text)
	if err := core.Chat.SendMessage(ctx, text); err != nil {
		fmt.Printf("! send failed: %v\n", err)
	}
}
