// Command init_db bootstraps the Postgres schema used by trackwatchd,
// adapted from the teacher's scripts/init_db/init_db.go: same
// connect-then-run-numbered-steps shape, TimescaleDB hypertable on the
// append-only history table, but rebuilt for vessels_latest /
// vessel_positions / alerts / alert_cooldowns instead of
// vehicle_telemetry / vehicle_alerts. Complements (does not replace)
// storage.Migrate's gorm AutoMigrate, which is what tests and
// small deployments use; this script is for operators who want the
// hypertable conversion gorm can't express.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "trackwatch"),
		dbGetEnv("DB_PASSWORD", "trackwatch"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "trackwatch"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Postgres/TimescaleDB is running:\n  docker-compose up -d timescaledb", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_extension(ctx, conn)
	step2_positions_table(ctx, conn)
	step3_latest_table(ctx, conn)
	step4_alerts_tables(ctx, conn)
	step5_indexes(ctx, conn)
	step6_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
}

func step1_extension(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Extensions ──────────────────────────")
	execOrFatal(ctx, conn,
		"CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;",
		"timescaledb extension",
	)
}

func step2_positions_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: vessel_positions table ──────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS vessel_positions (
			id          BIGSERIAL        PRIMARY KEY,
			timestamp   TIMESTAMPTZ      NOT NULL,
			mmsi        TEXT             NOT NULL,
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			sog         DOUBLE PRECISION,
			cog         DOUBLE PRECISION,
			heading     DOUBLE PRECISION
		);
	`, "vessel_positions table created")

	execOrFatal(ctx, conn, `
		SELECT create_hypertable(
			'vessel_positions',
			'timestamp',
			if_not_exists => TRUE
		);
	`, "vessel_positions converted to hypertable")
}

func step3_latest_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: vessels_latest table ────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS vessels_latest (
			mmsi                 TEXT             PRIMARY KEY,
			timestamp            TIMESTAMPTZ      NOT NULL,
			latitude             DOUBLE PRECISION NOT NULL,
			longitude            DOUBLE PRECISION NOT NULL,
			sog                  DOUBLE PRECISION,
			cog                  DOUBLE PRECISION,
			heading              DOUBLE PRECISION,
			last_alert_severity  INTEGER          NOT NULL DEFAULT 0
		);
	`, "vessels_latest table created")
}

func step4_alerts_tables(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: alerts + alert_cooldowns tables ─────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS alerts (
			id          BIGSERIAL        PRIMARY KEY,
			timestamp   TIMESTAMPTZ      NOT NULL,
			mmsi        TEXT             NOT NULL,
			type        TEXT             NOT NULL,
			severity    INTEGER          NOT NULL,
			summary     TEXT,
			evidence    JSONB,
			status      TEXT             NOT NULL DEFAULT 'new',
			notes       TEXT,

			CONSTRAINT chk_alert_type CHECK (
				type IN ('TELEPORT', 'TELEPORT_T2', 'POSITION_INVALID',
				         'TURN_RATE', 'TURN_RATE_T2', 'ACCELERATION',
				         'HEADING_COG_CONSISTENCY')
			),
			CONSTRAINT chk_alert_status CHECK (
				status IN ('new', 'reviewed', 'resolved', 'false_positive')
			)
		);
	`, "alerts table created")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS alert_cooldowns (
			mmsi                 TEXT NOT NULL,
			rule_type            TEXT NOT NULL,
			last_alert_timestamp TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (mmsi, rule_type)
		);
	`, "alert_cooldowns table created")
}

func step5_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_positions_mmsi_ts",
			sql:  `CREATE INDEX IF NOT EXISTS idx_positions_mmsi_ts ON vessel_positions (mmsi, timestamp DESC);`,
			why:  "query: position history for one vessel",
		},
		{
			name: "idx_alerts_mmsi_ts",
			sql:  `CREATE INDEX IF NOT EXISTS idx_alerts_mmsi_ts ON alerts (mmsi, timestamp DESC);`,
			why:  "query: alerts for one vessel",
		},
		{
			name: "idx_alerts_type_ts",
			sql:  `CREATE INDEX IF NOT EXISTS idx_alerts_type_ts ON alerts (type, timestamp DESC);`,
			why:  "query: alerts by rule type",
		},
		{
			name: "idx_alerts_sev_ts",
			sql:  `CREATE INDEX IF NOT EXISTS idx_alerts_sev_ts ON alerts (severity, timestamp DESC);`,
			why:  "query: highest-severity alerts first",
		},
		{
			name: "idx_cooldown_last_alert",
			sql:  `CREATE INDEX IF NOT EXISTS idx_cooldown_last_alert ON alert_cooldowns (last_alert_timestamp);`,
			why:  "cooldown.Cleanup's cutoff scan",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql, fmt.Sprintf("%-30s ← %s", idx.name, idx.why))
	}
}

func step6_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 6: Verification ────────────────────────")

	tables := []string{"vessel_positions", "vessels_latest", "alerts", "alert_cooldowns"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var hypertableName string
	err := conn.QueryRow(ctx, `
		SELECT hypertable_name
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'vessel_positions'
	`).Scan(&hypertableName)
	if err != nil {
		log.Fatalf("vessel_positions is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s (time partitioned)\n", hypertableName)
}

func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
