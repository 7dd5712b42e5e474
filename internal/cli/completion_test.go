package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freshRootCmd builds an isolated root command so generation tests don't
// depend on package-level command registration.
func freshRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relaymon",
		Short: "Watch a relay daemon's resources and connections",
	}
}

func TestCompletionBashGeneration(t *testing.T) {
	cmd := freshRootCmd()

	var buf bytes.Buffer
	err := cmd.GenBashCompletion(&buf)

	require.NoError(t, err)
	output := buf.String()

	assert.Contains(t, output, "# bash completion for relaymon")
	assert.Contains(t, output, "__relaymon_debug")
	assert.Contains(t, output, "complete -o default -F __start_relaymon relaymon")
}

func TestCompletionZshGeneration(t *testing.T) {
	cmd := freshRootCmd()

	var buf bytes.Buffer
	err := cmd.GenZshCompletion(&buf)

	require.NoError(t, err)
	output := buf.String()

	assert.Contains(t, output, "#compdef relaymon")
	assert.Contains(t, output, "_relaymon()")
}

func TestCompletionFishGeneration(t *testing.T) {
	cmd := freshRootCmd()

	var buf bytes.Buffer
	err := cmd.GenFishCompletion(&buf, true)

	require.NoError(t, err)
	output := buf.String()

	assert.Contains(t, output, "fish completion for relaymon")
	assert.Contains(t, output, "complete -c relaymon")
}

func TestCompletionCmd_RejectsUnknownShell(t *testing.T) {
	err := completionCmd.Args(completionCmd, []string{"tcsh"})
	require.Error(t, err)

	err = completionCmd.Args(completionCmd, []string{"bash"})
	assert.NoError(t, err)
}
