package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \r\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Proceed?")
		if err != nil {
			t.Fatalf("confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Proceed? [y/N] " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestReadNewPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "matching", input: "hunter2\nhunter2\n", want: "hunter2"},
		{name: "mismatch", input: "hunter2\nhunter3\n", wantErr: "do not match"},
		{name: "empty", input: "\n\n", wantErr: "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readNewPassphrase(strings.NewReader(tt.input), &bytes.Buffer{})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("readNewPassphrase() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readNewPassphrase() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("readNewPassphrase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadPassphrase_FromEnv(t *testing.T) {
	t.Setenv(passphraseEnv, "from-env")

	got, err := readPassphrase(strings.NewReader(""), &bytes.Buffer{}, "Passphrase: ")
	if err != nil {
		t.Fatalf("readPassphrase() error = %v", err)
	}
	if got != "from-env" {
		t.Errorf("readPassphrase() = %q, want %q", got, "from-env")
	}
}
