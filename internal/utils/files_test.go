package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/utils"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := utils.SafeWriteFile(path, []byte("a,b\n")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "a,b\n" {
		t.Fatalf("unexpected content %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"rows": 2})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if string(b) != "{\n  \"rows\": 2\n}" {
		t.Fatalf("unexpected json %q", b)
	}
}

func TestTimestampedName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	cases := []struct {
		source string
		want   string
	}{
		{"/data/Hospital Q1.xlsx", filepath.Join("out", "merged_Hospital_Q1_20240305_140709.csv")},
		{"", filepath.Join("out", "merged_20240305_140709.csv")},
	}
	for _, tc := range cases {
		if got := utils.TimestampedName("out", "merged", tc.source, ".csv", at); got != tc.want {
			t.Errorf("TimestampedName(%q) = %q, want %q", tc.source, got, tc.want)
		}
	}
}
