package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaymon/relaymon/internal/config"
	"github.com/relaymon/relaymon/internal/doctor"
	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
	"github.com/relaymon/relaymon/pkg/sshexec"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and environment issues",
	Long: `Doctor runs staged diagnostics: config discovery and validation, SSH
connectivity when monitoring remotely, the daemon target, and which
resolvers can query the process. Warnings are survivable; failures mean
monitoring cannot work until fixed.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ui.PrintHeader(ui.HeaderInfo{
		Version: formatVersion(version),
		Tagline: "environment diagnostics",
	})

	var (
		rows    []ui.DoctorCheckRow
		results []doctor.CheckResult
	)
	runStage := func(checks ...doctor.Check) []doctor.CheckResult {
		staged := doctor.RunAll(checks)
		results = append(results, staged...)
		for i, check := range checks {
			rows = append(rows, checkRow(check.Category(), staged[i]))
		}
		return staged
	}

	runStage(
		&doctor.ConfigFileCheck{ConfigPath: cfgFile},
		&doctor.ConfigSchemaCheck{ConfigPath: cfgFile},
	)

	cfg := doctorConfig()

	var client *sshexec.Client
	remote := cfg.Remote.Host != ""
	if remote {
		sshexec.StrictHostKeyChecking = cfg.Remote.StrictHostKey
		sshexec.WarningHandler = ui.PrintWarning

		connect := &doctor.SSHConnectivityCheck{
			Host: cfg.Remote.Host,
			Params: sshexec.Params{
				User:         cfg.Remote.User,
				Port:         cfg.Remote.Port,
				IdentityFile: cfg.Remote.IdentityFile,
			},
		}
		runStage(&doctor.SSHKeyCheck{}, &doctor.SSHAgentCheck{}, connect)

		client = connect.Client()
		if client != nil {
			defer client.Close() //nolint:errcheck // Diagnostic teardown
			runStage(&doctor.RemoteProcCheck{Runner: client})
		}
	}

	// The remaining stages probe through the SSH connection when remote,
	// so a failed dial ends the run here; its row already tells the story.
	if !remote || client != nil {
		process := &doctor.ProcessCheck{Target: daemonTarget(cfg)}
		if client != nil {
			process.Runner = client
		}
		runStage(process)

		var resolvers []tracker.Resolver
		if client != nil {
			resolvers = []tracker.Resolver{tracker.NewSSHResolver(client)}
		} else {
			resolvers = tracker.DefaultResolvers()
		}
		checks := make([]doctor.Check, len(resolvers))
		for i, r := range resolvers {
			checks[i] = &doctor.ResolverCheck{Resolver: r, PID: process.PID()}
		}
		staged := runStage(checks...)

		coverage := doctor.CoverageResult(staged)
		results = append(results, coverage)
		rows = append(rows, checkRow("RESOLVERS", coverage))
	}

	fmt.Print(ui.RenderDoctorTable(rows))
	fmt.Println(doctor.Summary(results))

	if doctor.HasFailures(results) {
		return errors.New(errors.ErrConfig,
			"Doctor found problems that will prevent monitoring",
			"Fix the failures above and re-run 'relaymon doctor'")
	}
	return nil
}

// doctorConfig loads the effective config but never fails: the config
// checks have already reported any problems, and later stages still run
// against defaults plus flags.
func doctorConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
		targetFlags.ApplyTo(cfg)
	}
	return cfg
}

func checkRow(category string, result doctor.CheckResult) ui.DoctorCheckRow {
	return ui.DoctorCheckRow{
		Status:     result.Status.String(),
		Category:   category,
		Message:    result.Message,
		Suggestion: result.Suggestion,
	}
}
