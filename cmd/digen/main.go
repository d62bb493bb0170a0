package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// usageError marks bad flags or arguments; run maps it to exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "digen:", err)
		return 2
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "digen:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(cfg, log)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		for _, e := range multierr.Errors(err) {
			_, _ = fmt.Fprintln(stderr, "digen:", e)
		}
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd(cfg config, log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "digen",
		Short:         "Generate typed dependency containers from a bindings manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.AddCommand(
		newGenerateCmd(cfg, log),
		newInspectCmd(log),
		newVersionCmd(),
	)
	return root
}

func newGenerateCmd(cfg config, log *zap.Logger) *cobra.Command {
	var (
		manifest string
		out      string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the container for a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := &generator{cfg: cfg, log: log}
			ctx := cmd.Context()

			written, err := g.generate(ctx, manifest, out)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), filepath.ToSlash(written))

			if !watch {
				return nil
			}
			w := &watcher{
				log:      log,
				manifest: manifest,
				out:      written,
				regen: func(ctx context.Context) error {
					_, err := g.generate(ctx, manifest, out)
					return err
				},
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().StringVar(&manifest, "manifest", "bindings.yaml", "path to the bindings manifest (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&out, "out", "", "output file, overrides the manifest's out")
	cmd.Flags().BoolVar(&watch, "watch", false, "regenerate when the manifest or package sources change")
	return cmd
}

func newInspectCmd(log *zap.Logger) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "inspect TYPE...",
		Short: "Print how each type would be constructed",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{errors.New("inspect needs at least one type")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := scanPackage(cmd.Context(), dir)
			if err != nil {
				return err
			}
			log.Debug("scanned", zap.String("package", pkg.name), zap.Int("types", len(pkg.types)))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			var errs error
			for _, arg := range args {
				t, err := pkg.parseTypeExpr(arg)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				shape, err := pkg.probe(t, "")
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", t, shape)
			}
			if err := tw.Flush(); err != nil {
				errs = multierr.Append(errs, err)
			}
			return errs
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "package directory to scan")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the digen version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "digen", version)
		},
	}
}
