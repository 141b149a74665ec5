package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/app"
	"github.com/programme-lv/executor/internal/behave"
	"github.com/programme-lv/executor/internal/environment"
	"github.com/programme-lv/executor/internal/logging"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:      "test",
		Usage:     "run behaviour scenarios against the local strategies",
		ArgsUsage: "<scenarios.toml|dir>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.toml"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print compiler comments of failures"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	files, err := scenarioFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no scenario files given")
	}

	cfg, err := environment.Load(c.String("config"))
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logging.Setup("warn", cfg.Log.Color))
	if err != nil {
		return err
	}
	defer a.Close()

	passed, failed := 0, 0
	for _, file := range files {
		cases, err := behave.Parse(file)
		if err != nil {
			return err
		}
		color.New(color.Bold).Println(file)
		for _, tc := range cases {
			start := time.Now()
			err := runCase(ctx, a, tc)
			dur := time.Since(start).Round(time.Millisecond)
			if err != nil {
				failed++
				color.Red("  FAIL %s (%s)", tc.Name, dur)
				if c.Bool("verbose") {
					fmt.Printf("       %v\n", err)
				}
				continue
			}
			passed++
			color.Green("  PASS %s (%s)", tc.Name, dur)
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

func runCase(ctx context.Context, a *app.App, tc behave.Case) error {
	sub, err := tc.Submission()
	if err != nil {
		return err
	}
	res, err := a.Tester.ExecuteSubmission(ctx, sub, internal.NopGatherer{})
	return tc.Check(res, err)
}

func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.toml"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}
