package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Run executes the embedded schema migrations sequentially in filename order.
// Statements are idempotent (CREATE ... IF NOT EXISTS), so replaying the full
// set on every start is safe.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		queryBytes, err := migrationFiles.ReadFile("sql/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		query := strings.TrimSpace(string(queryBytes))
		if query == "" {
			continue
		}

		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}

		applied++
		slog.DebugContext(ctx, "migration applied", slog.String("file", entry.Name()))
	}

	slog.InfoContext(ctx, "schema migrations complete", slog.Int("applied", applied))
	return nil
}
