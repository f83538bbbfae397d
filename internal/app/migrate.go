package app

import (
	"context"
	_ "embed"

	"github.com/adanyl0v/go-todo/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// MustMigratePostgres applies the idempotent schema and (re)binds the
// change trigger of the todos table to the configured realtime channel.
func MustMigratePostgres() {
	cfg := config.Global()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Postgres.ConnectTimeout)
	defer cancel()

	_, err := globalPostgresPool.Exec(ctx, schemaSQL)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to apply schema")
		panic(err)
	}

	// Trigger arguments are string literals and cannot be bound. The
	// channel name was checked by config.Validate.
	channel := cfg.Realtime.Channel
	triggerSQL := `
DROP TRIGGER IF EXISTS todos_notify ON todos;
CREATE TRIGGER todos_notify
    AFTER INSERT OR UPDATE OR DELETE
    ON todos
    FOR EACH ROW
EXECUTE FUNCTION notify_todos_change('` + channel + `');
`
	_, err = globalPostgresPool.Exec(ctx, triggerSQL)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to create todos trigger")
		panic(err)
	}

	globalLogger.Info().
		Str("channel", cfg.Realtime.Channel).
		Msg("migrated postgres")
}
