package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/behave"
	"github.com/programme-lv/executor/internal/gatherer/termgath"
	"github.com/programme-lv/executor/internal/logging"
	"github.com/programme-lv/executor/internal/remote"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:      "submit",
		Usage:     "send behaviour scenarios to a remote executor",
		ArgsUsage: "<scenarios.toml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Value: "http://localhost:8080", Usage: "executor endpoint root"},
			&cli.BoolFlag{Name: "gzip", Usage: "gzip the request body"},
			&cli.StringFlag{Name: "scenario", Usage: "run only the scenario with this description"},
			&cli.StringFlag{Name: "log-level", Value: "warn"},
		},
		Action: submit,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func submit(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one scenario file")
	}
	cases, err := behave.Parse(c.Args().First())
	if err != nil {
		return err
	}

	opts := []remote.Option{remote.WithLogger(logging.Setup(c.String("log-level"), true))}
	if c.Bool("gzip") {
		opts = append(opts, remote.WithGzip())
	}
	client := remote.NewClient(c.String("endpoint"), opts...)

	failed := 0
	for _, tc := range cases {
		if name := c.String("scenario"); name != "" && tc.Name != name {
			continue
		}
		sub, err := tc.Submission()
		if err != nil {
			return fmt.Errorf("%s: %w", tc.Name, err)
		}

		color.New(color.Bold).Printf("\n%s\n", tc.Name)
		res, err := client.RunSubmission(ctx, sub)
		replay(termgath.New(), sub, res, err)
		if err := tc.Check(res, err); err != nil {
			failed++
			color.Red("mismatch: %v", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) did not match", failed)
	}
	return nil
}

// replay feeds a finished remote result through a gatherer.
func replay(g internal.ResultGatherer, sub *internal.Submission, res *internal.ExecutionResult, err error) {
	g.StartJob("", sub)
	switch {
	case err != nil:
		g.InternalError(err.Error())
	case !res.IsCompiledSuccessfully:
		g.CompileError(res.CompilerComment)
	default:
		for _, r := range res.Results {
			g.ReachTest(internal.TestContext{ID: r.ID, Input: r.Input, IsTrialTest: r.IsTrialTest})
			g.FinishTest(r)
		}
		g.FinishNoError()
	}
}
