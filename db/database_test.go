package db

import "testing"

func TestRebind(t *testing.T) {
	q := "SELECT id FROM shifts WHERE group_id = ? AND user_id = ? AND shift_date = ?"
	if got := Rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite query changed: %s", got)
	}
	want := "SELECT id FROM shifts WHERE group_id = $1 AND user_id = $2 AND shift_date = $3"
	if got := Rebind(DriverPostgres, q); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestOpenSQLiteMemory(t *testing.T) {
	conn, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM shifts").Scan(&n); err != nil {
		t.Fatalf("shifts table missing: %v", err)
	}
	if err := Migrate(conn, DriverSQLite); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
