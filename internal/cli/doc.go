// Package cli implements the relaymon command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to the tracker and its supporting packages for the actual
// work. The general structure follows a clean separation between:
//
//   - Command definitions (cobra.Command instances)
//   - Session bring-up (config, target resolution, tracker construction)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "relaymon"; run bare it opens the live dashboard.
// Subcommands cover the one-shot and setup operations:
//
//	relaymon              - Live resource and connection dashboard
//	relaymon status       - One-shot snapshot of the daemon
//	relaymon connections  - List the daemon's open connections
//	relaymon init         - Create .relaymon.yaml config
//	relaymon doctor       - Diagnose configuration and environment
//	relaymon version      - Version information
//	relaymon completion   - Shell completion scripts
//
// # Sessions
//
// Commands that query the daemon share the same bring-up in newSession:
// load and validate config, resolve the daemon target to a pid (locally
// or over SSH), and build a tracker wired for that placement. The session
// must be closed to stop the tracker and release the SSH connection.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) and the target overrides
// (--pid, --pid-file, --name, --host) are defined on the root command and
// inherited by all subcommands. A target flag replaces the config's whole
// daemon section, so flag and file targets never mix.
package cli
