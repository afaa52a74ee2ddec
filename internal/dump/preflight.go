package dump

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"

	"github.com/go-sql-driver/mysql"

	"github.com/francishero/agent/internal/backup"
)

// dumpBinary is the client tool that produces the logical dump
const dumpBinary = "mysqldump"

// lookupBinary verifies the dump tool is installed and returns its path
func lookupBinary() (string, error) {
	path, err := exec.LookPath(dumpBinary)
	if err != nil {
		return "", backup.NewPreconditionError(
			fmt.Sprintf("%s not found on PATH", dumpBinary), err)
	}
	return path, nil
}

// buildDSN builds the client DSN from the job's database parameters
func buildDSN(cfg backup.DatabaseConfig) string {
	dsn := mysql.Config{
		User:                 cfg.Username,
		Passwd:               cfg.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DBName:               cfg.Database,
		Timeout:              cfg.Timeout,
		AllowNativePasswords: true,
	}
	return dsn.FormatDSN()
}

// checkServer verifies the database answers before the dump is attempted
func checkServer(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return backup.NewPreconditionError("database is not reachable", err)
	}
	return nil
}

// Preflight verifies the configured database can be dumped: the server
// must be reachable with the job's credentials.
func Preflight(ctx context.Context, cfg backup.DatabaseConfig) error {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return backup.NewPreconditionError("failed to prepare database connection", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	return checkServer(ctx, db)
}
