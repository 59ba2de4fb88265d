package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

type fakeMigrator struct {
	version uint
	dirty   bool
	applied bool
	upErr   error
	steps   []int
	forced  []int
}

func (f *fakeMigrator) Up() error {
	if f.upErr != nil {
		return f.upErr
	}
	f.version, f.applied = 1, true
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	if int(f.version)+n <= 0 {
		f.version, f.applied = 0, false
		return nil
	}
	f.version = uint(int(f.version) + n)
	return nil
}

func (f *fakeMigrator) Force(version int) error {
	f.forced = append(f.forced, version)
	f.version, f.applied, f.dirty = uint(version), version > 0, false
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	if !f.applied {
		return 0, false, migrate.ErrNilVersion
	}
	return f.version, f.dirty, nil
}

func newBufferLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewWithWriter(&buf, "debug"), &buf
}

func TestRunCommandUpLogsLedgerTables(t *testing.T) {
	m := &fakeMigrator{}
	logger, buf := newBufferLogger()

	require.NoError(t, runCommand(m, nil, logger))
	assert.Contains(t, buf.String(), `"version":1`)
	assert.Contains(t, buf.String(), `"ledger_tables":["client_credits","credited_orders"]`)
}

func TestRunCommandUpToleratesNoChange(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange, version: 1, applied: true}
	logger, buf := newBufferLogger()

	require.NoError(t, runCommand(m, []string{"up"}, logger))
	assert.Contains(t, buf.String(), "schema ready")
}

func TestRunCommandUpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("boom")}
	logger, _ := newBufferLogger()

	err := runCommand(m, []string{"up"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate up")
}

func TestRunCommandDownRollsBack(t *testing.T) {
	m := &fakeMigrator{version: 1, applied: true}
	logger, buf := newBufferLogger()

	require.NoError(t, runCommand(m, []string{"down"}, logger))
	assert.Equal(t, []int{-1}, m.steps)
	assert.Contains(t, buf.String(), "schema empty")
}

func TestRunCommandForceClearsDirty(t *testing.T) {
	m := &fakeMigrator{version: 1, applied: true, dirty: true}
	logger, buf := newBufferLogger()

	require.NoError(t, runCommand(m, []string{"version"}, logger))
	assert.Contains(t, buf.String(), "schema dirty")

	buf.Reset()
	require.NoError(t, runCommand(m, []string{"force", "1"}, logger))
	assert.Equal(t, []int{1}, m.forced)
	assert.Contains(t, buf.String(), "schema ready")
}

func TestRunCommandRejectsBadArguments(t *testing.T) {
	tests := [][]string{
		{"sideways"},
		{"force"},
		{"force", "x"},
		{"down", "0"},
	}
	for _, args := range tests {
		logger, _ := newBufferLogger()
		err := runCommand(&fakeMigrator{}, args, logger)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}
