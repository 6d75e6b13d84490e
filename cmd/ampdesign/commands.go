package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/extract"
	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/plot"
	"github.com/c360studio/ampdesign/smallsignal"
)

// readInput joins args, or reads stdin when there are none.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [request...]",
		Short: "Extract components, device parameters and topology from a request",
		Long:  "Extract prints the analysis of a design request as JSON. The request is read from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("request is empty")
			}
			return printJSON(cmd.OutOrStdout(), extract.Extract(text))
		},
	}
}

func analyzeCmd(g *globalFlags) *cobra.Command {
	var plotPath string

	cmd := &cobra.Command{
		Use:   "analyze [design.json]",
		Short: "Run the small-signal calculator on a design",
		Long: `Analyze reads a design JSON object from the given file, or stdin, and prints
the small-signal report. An unknown topology is reported in the output, not as a failure.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read design: %w", err)
			}

			var d smallsignal.Design
			if err := json.Unmarshal(data, &d); err != nil {
				return fmt.Errorf("parse design: %w", err)
			}

			res := smallsignal.Analyze(d)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if plotPath == "" || !res.OK() {
				return nil
			}
			cfg, _, err := g.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return writeBode(plotPath, d, cfg.Pipeline.Sweep)
		},
	}

	cmd.Flags().StringVar(&plotPath, "plot", "", "Also write the Bode magnitude plot to this SVG file")
	return cmd
}

func writeBode(path string, d smallsignal.Design, sweep nodal.SweepConfig) error {
	d.Topology = circuit.ParseTopology(string(d.Topology))
	points, err := nodal.Sweep(d, sweep)
	if err != nil {
		return fmt.Errorf("sweep design: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}
	if err := plot.WriteSVG(f, points, d.Topology.DisplayName()+" response"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [request...]",
		Short: "Run the full design pipeline and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := app.pipeline.Run(ctx, text)
			if res != nil {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}
