package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/importwatch/internal/adapter"
	"github.com/mmcdole/importwatch/internal/backend"
	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(ctx context.Context, cfg *adapter.Config, configPath string) error {
	fmt.Println()
	fmt.Println("Welcome to importwatch!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	// Loop until the backend accepts the settings
	for {
		endpoint, err := prompt(reader, "Backend endpoint (e.g., https://backend.example.com): ", cfg.Server.Endpoint)
		if err != nil {
			return err
		}
		projectID, err := prompt(reader, "Project ID: ", cfg.Project.ID)
		if err != nil {
			return err
		}
		apiKey, err := prompt(reader, "API key: ", cfg.Server.APIKey)
		if err != nil {
			return err
		}

		cfg.Server.Endpoint = strings.TrimRight(endpoint, "/")
		cfg.Project.ID = projectID
		cfg.Server.APIKey = apiKey

		if err := cfg.Validate(); err != nil {
			fmt.Printf("✗ %v\n\n", err)
			continue
		}

		fmt.Println()
		if err := verifyWithSpinner(ctx, cfg); err != nil {
			fmt.Printf("\n%s Could not reach the project: %v\n", styles.FailedChar, err)
			fmt.Println("Please check the settings and try again.")
			fmt.Println()
			continue
		}
		break
	}

	if err := adapter.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("%s Configuration saved!\n", styles.CompletedChar)
	fmt.Println()
	fmt.Println("Run importwatch again to start watching imports.")

	return nil
}

// prompt reads one line, keeping current when the answer is empty
func prompt(reader *bufio.Reader, label, current string) (string, error) {
	for {
		if current != "" {
			fmt.Printf("%s[%s] ", label, current)
		} else {
			fmt.Print(label)
		}
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			input = current
		}
		if input != "" {
			return input, nil
		}
		fmt.Println("A value is required. Please try again.")
	}
}

// verifyWithSpinner lists imports once with a visual spinner
func verifyWithSpinner(ctx context.Context, cfg *adapter.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := backend.NewClient(backend.Options{
		Endpoint:   cfg.Server.Endpoint,
		ProjectID:  cfg.Project.ID,
		APIKey:     cfg.Server.APIKey,
		Timeout:    cfg.Server.Timeout,
		MaxRetries: 0,
	}, adapter.NullLogger())

	resultCh := make(chan error, 1)
	go func() {
		_, err := client.ListJobs(ctx, domain.InProgressCSV())
		resultCh <- err
	}()

	frame := 0
	fmt.Printf("\r%s Connecting...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if errors.Is(err, domain.ErrAuthFailed) {
				return fmt.Errorf("the API key was rejected: %w", err)
			}
			if err == nil {
				fmt.Printf("%s Connected to project %s\n", styles.CompletedChar, cfg.Project.ID)
			}
			return err
		case <-ticker.C:
			frame = (frame + 1) % len(styles.SpinnerFrames)
			fmt.Printf("\r%s Connecting...", styles.SpinnerFrames[frame])
		}
	}
}
