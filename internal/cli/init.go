package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/config"
	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/ui"
	"github.com/relaymon/relaymon/pkg/sshexec"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Name           string // Pre-specified daemon process name
	PIDFile        string // Pre-specified pid file path
	Host           string // Pre-specified SSH host for remote monitoring
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use provided values
}

var (
	initForce          bool
	initNonInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .relaymon.yaml config file",
	Long: `Init walks through creating a .relaymon.yaml in the current directory:
which daemon to watch and, optionally, which host to watch it on.

With --non-interactive the target comes from the --name, --pid-file,
and --host flags instead of prompts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(InitOptions{
			Name:           targetFlags.Name,
			PIDFile:        targetFlags.PIDFile,
			Host:           targetFlags.Host,
			Overwrite:      initForce,
			NonInteractive: initNonInteractive,
		})
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config without asking")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use flag values")
	rootCmd.AddCommand(initCmd)
}

// Init creates a new .relaymon.yaml configuration file.
func Init(opts InitOptions) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	// Check for existing config
	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		var overwrite bool

		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}

		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	daemonName := opts.Name
	pidFile := opts.PIDFile
	sshHost := opts.Host

	if opts.NonInteractive {
		if daemonName == "" && pidFile == "" {
			return errors.New(errors.ErrConfig,
				"A daemon target is required in non-interactive mode",
				"Provide --name or --pid-file, or run interactively")
		}
	} else {
		// Interactive prompts using huh
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Daemon process name").
					Description("The relay daemon's process name, as pgrep would match it").
					Placeholder("relayd (leave empty to use a pid file)").
					Value(&daemonName),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Pid file (optional when a name is set)").
					Description("Path to the daemon's pid file").
					Placeholder("/run/relayd.pid").
					Value(&pidFile).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" && strings.TrimSpace(daemonName) == "" {
							return fmt.Errorf("set a process name or a pid file")
						}
						return nil
					}),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("SSH host (optional)").
					Description("Monitor the daemon on another machine; empty means local").
					Placeholder("relay-box or user@10.0.0.5").
					Value(&sshHost),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive")
		}
	}

	daemonName = strings.TrimSpace(daemonName)
	pidFile = strings.TrimSpace(pidFile)
	sshHost = strings.TrimSpace(sshHost)

	// Test the connection before saving a remote config
	if sshHost != "" {
		if err := testConnection(sshHost, opts.NonInteractive); err != nil {
			return err
		}
	}

	cfg := config.DefaultConfig()
	cfg.Daemon.Name = daemonName
	cfg.Daemon.PIDFile = pidFile
	cfg.Remote.Host = sshHost

	if err := config.Write(cfg, configPath); err != nil {
		return err
	}

	fmt.Printf("%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Println("Next steps:")
	fmt.Println("  relaymon          - Open the live dashboard")
	fmt.Println("  relaymon status   - One-shot snapshot")
	fmt.Println("  relaymon doctor   - Check the environment")

	return nil
}

// testConnection dials the host and, interactively, offers to save the
// config anyway when the dial fails.
func testConnection(sshHost string, nonInteractive bool) error {
	fmt.Println()
	spinner := ui.NewSpinner("Testing connection to " + sshHost)
	spinner.Start()

	client, err := sshexec.Dial(sshHost, 10*time.Second)
	if err == nil {
		client.Close() //nolint:errcheck // Probe connection, error not actionable
		spinner.Success()
		fmt.Println()
		return nil
	}
	spinner.Fail()

	connErr := errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("Connection to '%s' failed", sshHost),
		"Check that the host is reachable: ssh "+sshHost)

	if nonInteractive {
		return connErr
	}

	fmt.Printf("\n%s Connection to '%s' failed: %v\n\n", ui.SymbolFail, sshHost, err)

	var saveAnyway bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the connection later)").
				Value(&saveAnyway),
		),
	)
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return connErr
	}
	return nil
}
