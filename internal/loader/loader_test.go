package loader

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obsidianstack/waterwatch/pkg/types"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "water_samples.csv")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func parseString(t *testing.T, content string) *Dataset {
	t.Helper()
	ds, err := Parse(strings.NewReader(content), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ds
}

func TestParse_KeepsValidRowsInOrder(t *testing.T) {
	ds := parseString(t, `timestamp,location,ph,turbidity,temperature
2024-01-01 08:00,River A,7.0,5,20
2024-01-01 09:00,River B,9.0,5,20
2024-01-01 10:00,Lake C,6.8,1.25,12.5
`)
	if len(ds.Skipped) != 0 {
		t.Fatalf("Skipped = %d, want 0", len(ds.Skipped))
	}
	want := []types.Record{
		{Timestamp: "2024-01-01 08:00", Location: "River A", PH: 7.0, Turbidity: 5, Temperature: 20},
		{Timestamp: "2024-01-01 09:00", Location: "River B", PH: 9.0, Turbidity: 5, Temperature: 20},
		{Timestamp: "2024-01-01 10:00", Location: "Lake C", PH: 6.8, Turbidity: 1.25, Temperature: 12.5},
	}
	if len(ds.Records) != len(want) {
		t.Fatalf("Records = %d, want %d", len(ds.Records), len(want))
	}
	for i, w := range want {
		got := ds.Records[i]
		if got.Timestamp != w.Timestamp || got.Location != w.Location ||
			got.PH != w.PH || got.Turbidity != w.Turbidity || got.Temperature != w.Temperature {
			t.Errorf("Records[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestParse_DropsRowWithInvalidNumber(t *testing.T) {
	tests := []struct {
		name      string
		row       string
		wantField string
	}{
		{"ph not numeric", "t2,B,abc,5,20", ColPH},
		{"turbidity empty", "t2,B,7.0,,20", ColTurbidity},
		{"temperature text", "t2,B,7.0,5,warm", ColTemperature},
		{"row too short", "t2,B,7.0", ColTurbidity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := parseString(t, "timestamp,location,ph,turbidity,temperature\n"+
				"t1,A,7.0,5,20\n"+tc.row+"\nt3,C,7.5,2,15\n")

			if len(ds.Records) != 2 {
				t.Fatalf("Records = %d, want 2", len(ds.Records))
			}
			if ds.Records[0].Timestamp != "t1" || ds.Records[1].Timestamp != "t3" {
				t.Errorf("kept rows = %q,%q, want t1,t3", ds.Records[0].Timestamp, ds.Records[1].Timestamp)
			}
			if len(ds.Skipped) != 1 {
				t.Fatalf("Skipped = %d, want exactly 1", len(ds.Skipped))
			}
			rerr := ds.Skipped[0]
			if rerr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", rerr.Field, tc.wantField)
			}
			if rerr.Line != 3 {
				t.Errorf("Line = %d, want 3", rerr.Line)
			}
			if !errors.Is(rerr, ErrRowParse) {
				t.Error("errors.Is(rowErr, ErrRowParse) = false")
			}
			if rerr.Row[ColTimestamp] != "t2" {
				t.Errorf("Row[timestamp] = %q, want t2", rerr.Row[ColTimestamp])
			}
		})
	}
}

func TestParse_OneDiagnosticPerBadRow(t *testing.T) {
	ds := parseString(t, `timestamp,location,ph,turbidity,temperature
t1,A,x,y,z
t2,B,7,bad,20
t3,C,7,5,20
`)
	if len(ds.Records) != 1 {
		t.Errorf("Records = %d, want 1", len(ds.Records))
	}
	if len(ds.Skipped) != 2 {
		t.Errorf("Skipped = %d, want 2 (one per row, not per field)", len(ds.Skipped))
	}
}

func TestParse_ToleratesWhitespaceAndBOM(t *testing.T) {
	ds := parseString(t, "\ufefftimestamp, location ,ph,turbidity,temperature\n"+
		"t1,A, 7.25 ,5 ,20\n")
	if len(ds.Records) != 1 {
		t.Fatalf("Records = %d, want 1 (skipped: %v)", len(ds.Records), ds.Skipped)
	}
	if ds.Records[0].PH != 7.25 {
		t.Errorf("PH = %v, want 7.25", ds.Records[0].PH)
	}
	if ds.Records[0].Location != "A" {
		t.Errorf("Location = %q, want A", ds.Records[0].Location)
	}
}

func TestParse_PreservesExtraColumns(t *testing.T) {
	ds := parseString(t, `station_id,timestamp,location,ph,turbidity,temperature,notes
S-1,t1,A,7,5,20,after rain
`)
	if len(ds.Records) != 1 {
		t.Fatalf("Records = %d, want 1", len(ds.Records))
	}
	extra := ds.Records[0].Extra
	if extra["station_id"] != "S-1" || extra["notes"] != "after rain" {
		t.Errorf("Extra = %v", extra)
	}
	if _, ok := extra[ColPH]; ok {
		t.Error("required columns must not be duplicated into Extra")
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	ds := parseString(t, "timestamp,location,ph,turbidity,temperature\n")
	if len(ds.Records) != 0 || len(ds.Skipped) != 0 {
		t.Errorf("got %d records, %d skipped; want 0, 0", len(ds.Records), len(ds.Skipped))
	}
}

func TestParse_EmptyInput(t *testing.T) {
	ds := parseString(t, "")
	if len(ds.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(ds.Records))
	}
}

func TestParse_BlankLinesIgnored(t *testing.T) {
	ds := parseString(t, "timestamp,location,ph,turbidity,temperature\n\nt1,A,7,5,20\n\n")
	if len(ds.Records) != 1 || len(ds.Skipped) != 0 {
		t.Errorf("got %d records, %d skipped; want 1, 0", len(ds.Records), len(ds.Skipped))
	}
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("timestamp,location,ph,temperature\nt1,A,7,20\n"), Options{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), ColTurbidity) {
		t.Errorf("error %q should name the missing column", err)
	}
}

func TestParse_Delimiter(t *testing.T) {
	ds, err := Parse(strings.NewReader("timestamp;location;ph;turbidity;temperature\nt1;A;7,5;5;20\n"),
		Options{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Decimal commas are not numbers.
	if len(ds.Records) != 0 || len(ds.Skipped) != 1 {
		t.Errorf("got %d records, %d skipped; want 0, 1", len(ds.Records), len(ds.Skipped))
	}

	ds, err = Parse(strings.NewReader("timestamp\tlocation\tph\tturbidity\ttemperature\nt1\tA\t7.5\t5\t20\n"),
		Options{Delimiter: '\t'})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ds.Records) != 1 || ds.Records[0].PH != 7.5 {
		t.Errorf("tab-delimited parse failed: %+v", ds.Records)
	}
}

func TestParse_Comment(t *testing.T) {
	ds, err := Parse(strings.NewReader("timestamp,location,ph,turbidity,temperature\n# calibration run\nt1,A,7,5,20\n"),
		Options{Comment: '#'})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ds.Records) != 1 || len(ds.Skipped) != 0 {
		t.Errorf("got %d records, %d skipped; want 1, 0", len(ds.Records), len(ds.Skipped))
	}
}

func TestLoad_File(t *testing.T) {
	p := writeCSV(t, "timestamp,location,ph,turbidity,temperature\nt1,A,7,5,20\n")
	ds, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Records) != 1 {
		t.Errorf("Records = %d, want 1", len(ds.Records))
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

// captureLog routes the default slog logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestParse_LogsOneWarningPerDroppedRow(t *testing.T) {
	logs := captureLog(t)

	ds := parseString(t, `timestamp,location,ph,turbidity,temperature
t1,A,x,y,z
t2,B,7,5,20
t3,C,7,bad,20
t4,D,7,5,
`)
	if len(ds.Skipped) != 3 {
		t.Fatalf("Skipped = %d, want 3", len(ds.Skipped))
	}
	if got := strings.Count(logs.String(), "loader: skipping invalid row"); got != 3 {
		t.Errorf("skip warnings = %d, want 3\n%s", got, logs.String())
	}
	for _, line := range []string{"line=2", "line=4", "line=5"} {
		if !strings.Contains(logs.String(), line) {
			t.Errorf("warnings do not name %s\n%s", line, logs.String())
		}
	}
	if strings.Contains(logs.String(), "line=3") {
		t.Errorf("valid row was reported\n%s", logs.String())
	}
}

func TestParse_ValidRowsLogNothing(t *testing.T) {
	logs := captureLog(t)
	parseString(t, "timestamp,location,ph,turbidity,temperature\nt1,A,7,5,20\n")
	if strings.Contains(logs.String(), "skipping invalid row") {
		t.Errorf("unexpected warning\n%s", logs.String())
	}
}

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7.25", 7.25, true},
		{" 7 ", 7, true},
		{"-1.5e2", -150, true},
		{"1_000.5", 1000.5, true},
		{"1e1_0", 1e10, true},
		{"0x1p3", 0, false},
		{"-0X10", 0, false},
		{"_1", 0, false},
		{"1_", 0, false},
		{"1__0", 0, false},
		{"1_.5", 0, false},
		{"", 0, false},
		{"seven", 0, false},
	}
	for _, tc := range tests {
		got, err := parseMeasurement(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("parseMeasurement(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("parseMeasurement(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_HexValueDropsRow(t *testing.T) {
	ds := parseString(t, "timestamp,location,ph,turbidity,temperature\nt1,A,0x1p3,5,20\nt2,B,7,1_0,20\n")
	if len(ds.Records) != 1 || ds.Records[0].Timestamp != "t2" {
		t.Fatalf("Records = %+v, want only t2", ds.Records)
	}
	if ds.Records[0].Turbidity != 10 {
		t.Errorf("Turbidity = %v, want 10", ds.Records[0].Turbidity)
	}
	if len(ds.Skipped) != 1 || ds.Skipped[0].Field != ColPH {
		t.Errorf("Skipped = %v, want one ph error", ds.Skipped)
	}
}
