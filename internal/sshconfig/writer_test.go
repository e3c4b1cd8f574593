package sshconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guse-cli/guse/internal/apperr"
	"github.com/guse-cli/guse/internal/model"
)

func TestFormatHostBlock_Basic(t *testing.T) {
	entry := model.HostEntry{
		Alias:    "github-work",
		HostName: "github.com",
		User:     "git",
		Port:     443,
	}
	got := FormatHostBlock(entry)
	want := "Host github-work\n  HostName github.com\n  User git\n  Port 443\n"
	if got != want {
		t.Fatalf("block mismatch\nwant=%q\n got=%q", want, got)
	}
}

func TestFormatHostBlock_OmitsDefaults(t *testing.T) {
	got := FormatHostBlock(model.HostEntry{Alias: "myhost", HostName: "myhost", Port: 22})
	if got != "Host myhost\n" {
		t.Fatalf("expected bare block, got %q", got)
	}
}

func TestFormatHostBlock_IdentityFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := FormatHostBlock(model.HostEntry{
		Alias:        "gh",
		HostName:     "github.com",
		IdentityFile: filepath.Join(home, ".ssh", "id_work"),
		ProxyJump:    "bastion",
	})
	for _, check := range []string{
		"  IdentityFile ~/.ssh/id_work\n",
		"  IdentitiesOnly yes\n",
		"  ProxyJump bastion\n",
	} {
		if !strings.Contains(got, check) {
			t.Errorf("expected block to contain %q, got:\n%s", check, got)
		}
	}

	quoted := FormatHostBlock(model.HostEntry{Alias: "gh", IdentityFile: "/keys/my key"})
	if !strings.Contains(quoted, `IdentityFile "/keys/my key"`) {
		t.Fatalf("expected quoted path, got %q", quoted)
	}
}

func TestAppendHostEntry(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".ssh", "config")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, configPath, "Host existing\n  HostName existing.example.com")

	entry := model.HostEntry{Alias: "github-work", HostName: "github.com", User: "git"}
	if err := AppendHostEntry(configPath, entry); err != nil {
		t.Fatalf("AppendHostEntry failed: %v", err)
	}

	hosts, err := ListHosts(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 2 || hosts[0] != "existing" || hosts[1] != "github-work" {
		t.Fatalf("unexpected hosts after append: %v", hosts)
	}
	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "existing.example.com\n\nHost github-work\n") {
		t.Fatalf("expected blank line separation, got:\n%s", content)
	}
}

func TestAppendHostEntry_CreatesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".ssh", "config")
	if err := AppendHostEntry(configPath, model.HostEntry{Alias: "new"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
	content, _ := os.ReadFile(configPath)
	if string(content) != "Host new\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestValidateAlias(t *testing.T) {
	existing := []string{"github-work", "*"}
	for _, alias := range []string{"", "host *", "host?", "!host", "host\ttab", "GitHub-Work"} {
		if err := ValidateAlias(existing, alias); !errors.Is(err, apperr.ErrInvalidHost) {
			t.Errorf("expected invalid host for alias %q, got %v", alias, err)
		}
	}
	if err := ValidateAlias(existing, "github-personal"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}
