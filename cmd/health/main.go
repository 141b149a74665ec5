package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

type healthResponse struct {
	Status     string   `json:"status"`
	Uptime     string   `json:"uptime"`
	Strategies []string `json:"strategies"`
}

func main() {
	cmd := &cli.Command{
		Name:  "health",
		Usage: "check that an executor is up",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Value: "http://localhost:8080", Usage: "executor endpoint root"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second},
		},
		Action: check,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		color.Red("unhealthy: %v", err)
		os.Exit(1)
	}
}

func check(ctx context.Context, c *cli.Command) error {
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.String("endpoint")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid health response: %w", err)
	}

	color.Green("%s (up %s)", body.Status, body.Uptime)
	for _, s := range body.Strategies {
		fmt.Printf("  %s\n", s)
	}
	return nil
}
