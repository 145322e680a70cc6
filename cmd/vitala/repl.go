package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/seralba/vitala-health-agent/internal/httpkit"
	"github.com/seralba/vitala-health-agent/internal/session"
)

// runChat handles the "vitala chat" subcommand: an interactive
// terminal conversation against a single in-memory session. Logs are
// suppressed to Warn so they don't interleave with the conversation.
func runChat(ctx context.Context, stdin io.Reader, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	loop, err := buildLoop(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	sess := loop.Sessions().GetOrCreate(session.NewID())

	fmt.Fprintln(stdout, "Vitala - AI Health Assistant")
	fmt.Fprintln(stdout, "Ask about BMI, water intake, medication reminders, or log your symptoms.")
	fmt.Fprintln(stdout, "Type 'quit' to exit.")
	fmt.Fprintln(stdout)

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			fmt.Fprintln(stdout, "Vitala: Take care! Remember to stay healthy.")
			return nil
		}

		answer, err := loop.Respond(ctx, sess, input)
		if err != nil {
			if errors.Is(err, httpkit.ErrServiceUnavailable) {
				fmt.Fprintln(stdout, "Vitala: The language model is unreachable right now. Please try again.")
				continue
			}
			return fmt.Errorf("chat: %w", err)
		}
		fmt.Fprintf(stdout, "Vitala: %s\n\n", answer)
	}
	return scanner.Err()
}
