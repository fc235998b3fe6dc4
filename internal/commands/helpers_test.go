package commands_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cleared-dev/farereceipts/internal/commands"
)

// runFarereceipts executes the command tree in-process with stdin as input.
func runFarereceipts(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
