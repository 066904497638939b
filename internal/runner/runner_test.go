package runner

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdString(t *testing.T) {
	assert.Equal(t, "waf", Cmd{Name: "waf"}.String())
	assert.Equal(t, "../waf configure --prefix=/opt", Cmd{Name: "../waf", Args: []string{"configure", "--prefix=/opt"}}.String())
}

func TestExecOutputCombined(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	out, err := Exec{}.Output(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo out; echo err 1>&2"}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "out")
	assert.Contains(t, string(out), "err")
}

func TestExecRunNonZeroExit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	err := Exec{}.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "exit 3"}})
	require.Error(t, err)

	var ee *ExitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.Code)
	assert.Equal(t, "sh -c exit 3", ee.Cmd)
}

func TestExecRunDirAndEnv(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	dir := t.TempDir()
	out, err := Exec{}.Output(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "pwd; echo $ECELL_PROBE"},
		Dir:  dir,
		Env:  []string{"ECELL_PROBE=scoped"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "scoped")
}
