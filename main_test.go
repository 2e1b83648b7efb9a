package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/registryparser/entities"
)

const sampleDrugFeed = "Trade name;Common name;ATC code;Route of administration;Package\n" +
	"Apap;Paracetamolum;N02BE01;doustna;5909990000001¦OTC¦R/1¦10 tabl.\n" +
	";orphan row without a trade name;;;\n"

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommandDrugs(t *testing.T) {
	stdout, stderr, err := runCLI(t, "parse", "--file", writeFeed(t, sampleDrugFeed), "--dataset", "drugs")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var drugs []entities.Drug
	if err := json.Unmarshal([]byte(stdout), &drugs); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(drugs) != 1 || drugs[0].TradeName != "Apap" {
		t.Fatalf("unexpected drugs: %+v", drugs)
	}
	if drugs[0].DataSource != "rpl" {
		t.Errorf("dataSource = %q, want rpl", drugs[0].DataSource)
	}
	if !strings.Contains(stderr, "input=2 output=1 dropped=1") {
		t.Errorf("unexpected stats line: %q", stderr)
	}
}

func TestParseCommandReport(t *testing.T) {
	stdout, _, err := runCLI(t, "parse", "-f", writeFeed(t, sampleDrugFeed), "--report")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var report interfaces.DataQualityReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if report.TotalDrugs != 1 {
		t.Errorf("totalDrugs = %d, want 1", report.TotalDrugs)
	}
}

func TestParseCommandClassifications(t *testing.T) {
	feed := "Code;Name;Category;Parent code\nJ;Respiratory;chapter;\nJ45;Asthma;block;J\n"
	stdout, _, err := runCLI(t, "parse", "-f", writeFeed(t, feed), "-d", "classifications")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var classes []entities.Classification
	if err := json.Unmarshal([]byte(stdout), &classes); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(classes) != 1 || len(classes[0].Subcategories) != 1 || classes[0].Subcategories[0].Code != "J45" {
		t.Errorf("unexpected tree: %+v", classes)
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file flag", []string{"parse"}, "file"},
		{"unknown dataset", []string{"parse", "-f", "unused", "-d", "vaccines"}, ""},
		{"malformed header", []string{"parse", "-f", "HEADER", "-d", "drugs"}, "malformed header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			for i, a := range args {
				switch a {
				case "unused":
					args[i] = writeFeed(t, sampleDrugFeed)
				case "HEADER":
					args[i] = writeFeed(t, "Name;Other\nx;y\n")
				}
			}

			_, _, err := runCLI(t, args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
