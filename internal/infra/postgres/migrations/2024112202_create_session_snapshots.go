package migrations

import _ "embed"

//go:embed 0002_create_session_snapshots.sql
var createSessionSnapshotsSQL string

func init() {
	Migrations.MustRegister(execSQL(createSessionSnapshotsSQL), dropTable("session_snapshots"))
}
