package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/dronestatus/internal/config"
	"github.com/rileyhilliard/dronestatus/internal/errors"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/ui"
	"github.com/rileyhilliard/dronestatus/pkg/sshutil"
)

var (
	initForce          bool
	initNonInteractive bool
	initGlobal         bool
)

// noTunnel is the picker value for a direct connection.
const noTunnel = ""

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .dronestatus.yaml configuration",
	Long: `Create a dronestatus configuration file.

Prompts for the rosbridge address, an optional SSH host to tunnel through
(picked from ~/.ssh/config), and the position topic, then checks that
rosbridge answers. Without a terminal, or with --non-interactive, the
defaults are written as is.

Examples:
  dronestatus init
  dronestatus init --global
  dronestatus init --non-interactive --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".", config.ConfigFileName)
		if initGlobal {
			home, err := os.UserHomeDir()
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Cannot determine home directory", "Set $HOME")
			}
			path = filepath.Join(home, config.GlobalConfigDir, config.GlobalConfigFile)
		}
		return Init(cmd.Context(), InitOptions{
			Path:           path,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive || !term.IsTerminal(int(os.Stdin.Fd())),
			Out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and write defaults")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write ~/.config/dronestatus/config.yaml instead")
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string
	Overwrite      bool
	NonInteractive bool
	Out            io.Writer
	// SSHConfigPath lists tunnel candidates; defaults to ~/.ssh/config.
	SSHConfigPath string
}

// Init writes a new config file at opts.Path.
func Init(ctx context.Context, opts InitOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", opts.Path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("'%s' already exists. Overwrite?", opts.Path)).
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(opts.Out, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if !opts.NonInteractive {
		if err := promptConfig(cfg, opts.SSHConfigPath); err != nil {
			return err
		}
		checkRosbridge(ctx, cfg, opts.Out)
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(opts.Path, cfg, true); err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "%s Created %s\n\n", ui.SymbolSuccess, opts.Path)
	fmt.Fprintln(opts.Out, "Next steps:")
	fmt.Fprintln(opts.Out, "  dronestatus            - Show the status line")
	fmt.Fprintln(opts.Out, "  dronestatus <topic>    - Track a different position topic")
	return nil
}

func promptConfig(cfg *config.Config, sshConfigPath string) error {
	if sshConfigPath == "" {
		sshConfigPath = sshutil.DefaultConfigPath()
	}
	hosts, err := sshutil.ParseSSHConfigFile(sshConfigPath)
	if err != nil {
		logger.Default().Debug("reading %s: %v", sshConfigPath, err)
	}

	tunnelHost := noTunnel
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("rosbridge URL").
				Description("Address of rosbridge_server as seen from the tunnel host, or from here").
				Placeholder(cfg.Rosbridge.URL).
				Value(&cfg.Rosbridge.URL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "ws://") && !strings.HasPrefix(s, "wss://") {
						return fmt.Errorf("URL must start with ws:// or wss://")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tunnel through SSH?").
				Description("Pick a host when rosbridge only listens on the drone's loopback").
				Options(tunnelOptions(hosts)...).
				Value(&tunnelHost),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Position topic").
				Description("nav_msgs/Odometry topic to display").
				Value(&cfg.Topics.Position).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("topic is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}

	cfg.Tunnel.Host = tunnelHost
	return nil
}

func tunnelOptions(hosts []sshutil.HostEntry) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("No tunnel, connect directly", noTunnel)}
	for _, h := range hosts {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", h.Alias, h.Description()), h.Alias))
	}
	return opts
}

// checkRosbridge reports whether the configured server answers. A failure
// is only a warning; the drone may simply be powered off.
func checkRosbridge(ctx context.Context, cfg *config.Config, out io.Writer) {
	tr, closer := newTransport(cfg, logger.Noop())
	if closer != nil {
		defer closer.Close()
	}

	spinner := ui.NewSpinner(out, "Checking "+endpoint(cfg))
	spinner.Start()
	if tr.Online(ctx) {
		spinner.Success()
		return
	}
	spinner.Fail()
	fmt.Fprintln(out, "  Not reachable right now. dronestatus will keep retrying when it runs.")
	fmt.Fprintln(out)
}
