package normalize

import "testing"

func TestReadTable_TrimsHeaderAndSkipsMalformed(t *testing.T) {
	text := " Date , Gross ,Name\n" +
		"01/01/2024,1,00,Anna,extra\n" + // too many cells
		"02/01/2024,\"2,00\",Ben\n" +
		"03/01/2024,\"3,00\"\n" // short row is padded
	var stats Stats
	table, err := ReadTable([]byte(text), ',', &stats)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if got := table.Header; len(got) != 3 || got[0] != "Date" || got[1] != "Gross" {
		t.Errorf("header = %q", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if stats.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", stats.Malformed)
	}
	if table.Rows[0]["Gross"] != "2,00" || table.Rows[0]["Name"] != "Ben" {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	if v, ok := table.Rows[1]["Name"]; !ok || v != "" {
		t.Errorf("short row not padded: %v", table.Rows[1])
	}
}

func TestReadTable_Empty(t *testing.T) {
	var stats Stats
	table, err := ReadTable(nil, ';', &stats)
	if err != nil {
		t.Fatalf("ReadTable(nil) error = %v", err)
	}
	if len(table.Header) != 0 || len(table.Rows) != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
}

func TestReadTable_SemicolonWithCommaDecimals(t *testing.T) {
	var stats Stats
	table, err := ReadTable([]byte("Buchungstag;Betrag\n01.01.24;10,00\n"), ';', &stats)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if table.Rows[0]["Betrag"] != "10,00" {
		t.Errorf("row = %v", table.Rows[0])
	}
}
