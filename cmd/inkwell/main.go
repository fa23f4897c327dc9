package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"inkwell-client/internal/config"
	"inkwell-client/internal/model"
	"inkwell-client/internal/orchestrator"
	"inkwell-client/internal/socket"
	"inkwell-client/internal/transport"
	"inkwell-client/pkg/logger"
)

func main() {
	var (
		configPath string
		mode       string
		text       string
		style      string
		tone       string
		language   string
	)
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "config file path")
	flag.StringVar(&mode, "mode", "chat", "operation: chat, grammar, paraphrase, humanize, aicheck")
	flag.StringVar(&text, "text", "", "input text (omit with -mode chat for an interactive session)")
	flag.StringVar(&style, "style", "", "paraphrase style")
	flag.StringVar(&tone, "tone", "", "custom tone")
	flag.StringVar(&language, "lang", "", "language hint")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	httpClient := transport.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var channel orchestrator.Channel
	if cfg.Socket.URL != "" {
		manager := socket.NewManager(socket.Options{
			URL:                  cfg.Socket.URL,
			MaxReconnectAttempts: cfg.Socket.MaxReconnectAttempts,
			ReconnectDelay:       cfg.Socket.ReconnectDelay,
		})
		manager.Connect()
		defer manager.Close()
		channel = manager
	}

	orch := orchestrator.New(httpClient, channel, orchestrator.Options{
		SystemPrompt:        cfg.Chat.SystemPrompt,
		HistoryWindow:       cfg.Chat.HistoryWindow,
		GrammarKeyTolerance: cfg.Cache.GrammarKeyTolerance,
	})

	m := model.Mode(mode)
	if m == model.ModeChat && text == "" {
		runChat(orch)
		return
	}

	if text == "" {
		fmt.Fprintln(os.Stderr, "-text is required")
		os.Exit(2)
	}

	result, err := orch.Submit(context.Background(), model.Request{
		Mode:       m,
		Text:       text,
		Style:      style,
		CustomTone: tone,
		Language:   language,
	})
	if err != nil {
		logger.Fatalf("request failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}

func runChat(orch *orchestrator.Orchestrator) {
	chatID := uuid.New().String()
	var history []model.Turn

	fmt.Println("Interactive chat. /exit to quit.")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "/exit" {
			break
		}

		printed := 0
		result, err := orch.Submit(context.Background(), model.Request{
			Mode:     model.ModeChat,
			Text:     line,
			ChatID:   chatID,
			Messages: history,
			OnStreamUpdate: func(snapshot string) {
				// Snapshots carry the full accumulated text; print
				// only what is new.
				if len(snapshot) > printed {
					fmt.Print(snapshot[printed:])
					printed = len(snapshot)
				}
			},
		})
		if err != nil {
			fmt.Printf("\n[error] %v\n", err)
			continue
		}

		reply, _ := result.(string)
		if len(reply) > printed {
			fmt.Print(reply[printed:])
		}
		fmt.Println()

		history = append(history,
			model.Turn{Role: model.RoleUser, Content: line},
			model.Turn{Role: model.RoleAssistant, Content: reply},
		)
	}
	fmt.Println("bye")
}
