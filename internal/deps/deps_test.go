package deps

import (
	"context"
	"errors"
	"testing"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/ecell/ecellbrew/internal/runner/runnertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manifest = []formula.Dependency{
	{Name: "gsl"},
	{Name: "boost", Options: []string{"--with-python"}},
	{Name: "hdf5", Options: []string{"--enable-cxx"}},
}

func TestCheckAllInstalled(t *testing.T) {
	fake := runnertest.New().
		On("brew list --versions gsl", runnertest.Response{Output: "gsl 2.7\n"}).
		On("brew list --versions boost", runnertest.Response{Output: "boost 1.76.0\n"}).
		On("brew list --versions hdf5", runnertest.Response{Output: "hdf5 1.12.0\n"})

	c := &Checker{Runner: fake}
	require.NoError(t, c.Check(context.Background(), manifest))
	assert.Len(t, fake.Calls(), 3)
}

func TestCheckReportsEveryMissing(t *testing.T) {
	notInstalled := &runner.ExitError{Cmd: "brew list", Code: 1, Err: errors.New("exit status 1")}
	fake := runnertest.New().
		On("brew list --versions gsl", runnertest.Response{Output: "gsl 2.7\n"}).
		On("brew list --versions boost", runnertest.Response{Err: notInstalled}).
		On("brew list --versions hdf5", runnertest.Response{Output: ""})

	err := (&Checker{Runner: fake}).Check(context.Background(), manifest)
	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Len(t, me.Missing, 2)
	assert.Equal(t, "missing dependencies, install them with:\n"+
		"  brew install boost --with-python\n"+
		"  brew install hdf5 --enable-cxx", err.Error())
}

func TestCheckQueryFailure(t *testing.T) {
	fake := runnertest.New().On("/opt/brew list --versions gsl", runnertest.Response{Err: errors.New("no such file")})
	err := (&Checker{Runner: fake, Brew: "/opt/brew"}).Check(context.Background(), manifest[:1])
	require.Error(t, err)
	var me *MissingError
	assert.False(t, errors.As(err, &me))
}

func TestInstallArgs(t *testing.T) {
	assert.Equal(t, "pkg-config", InstallArgs(formula.Dependency{Name: "pkg-config"}))
	assert.Equal(t, "boost --with-python", InstallArgs(formula.Dependency{Name: "boost", Options: []string{"--with-python"}}))
}
