package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// ledgerTables are created by migration 1 and back the credits ledger.
var ledgerTables = []string{"client_credits", "credited_orders"}

// migrator is the subset of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

var errUsage = errors.New("usage: migrate [up | down [n] | force <version> | version]")

// runCommand applies the requested migration command and logs the schema
// version it leaves behind.
func runCommand(m migrator, args []string, logger *logging.Logger) error {
	logger = logging.OrDefault(logger)
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("%w: invalid step count %q", errUsage, args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "force":
		// clears a dirty flag after a failed run
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, args[1])
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case "version":
	default:
		return errUsage
	}
	return logSchema(m, cmd, logger)
}

func logSchema(m migrator, cmd string, logger *logging.Logger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("schema empty", "command", cmd)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	tables := []string{}
	if version >= 1 {
		tables = ledgerTables
	}
	if dirty {
		logger.Warn("schema dirty, run force <version> after fixing it", "command", cmd, "version", version)
		return nil
	}
	logger.Info("schema ready", "command", cmd, "version", version, "ledger_tables", tables)
	return nil
}
