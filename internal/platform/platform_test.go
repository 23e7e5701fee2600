package platform

import (
	"context"
	"testing"
	"time"
)

func TestParsePID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1234", want: 1234},
		{in: "'4321'", want: 4321},
		{in: " \"42\"\n", want: 42},
		{in: "", want: 0},
		{in: "''", want: 0},
		{in: "abc", wantErr: true},
		{in: "-1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMillis(t *testing.T) {
	got, err := parseMillis("1500\n")
	if err != nil {
		t.Fatalf("parseMillis() error = %v", err)
	}
	if got != 1500*time.Millisecond {
		t.Errorf("parseMillis() = %v, want 1.5s", got)
	}
	if _, err := parseMillis("soon"); err == nil {
		t.Error("parseMillis(soon) expected error")
	}
}

func TestExeName(t *testing.T) {
	tests := map[string]string{
		`C:\Program Files\Mozilla Firefox\firefox.exe`: "firefox",
		"/usr/bin/code":                                "code",
		"Code.exe":                                     "Code",
	}
	for in, want := range tests {
		if got := exeName(in); got != want {
			t.Errorf("exeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutput(t *testing.T) {
	if _, err := output(context.Background(), "pstalker-no-such-tool"); err == nil {
		t.Error("output() with missing binary expected error")
	}
}
