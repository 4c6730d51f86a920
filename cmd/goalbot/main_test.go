package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
)

// newTestConfig writes a config file pointing at a fresh database and
// returns the paths of both.
func newTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "goalbot.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("logger:\n  level: error\ndatabase:\n  path: %s\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dbPath
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func openStore(t *testing.T, dbPath string) database.Store {
	t.Helper()

	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, logger.Discard())
}

func TestRootCmd_Help(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"run", "migrate", "user", "board", "category", "goal", "verify"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("expected help to list %q, got: %s", sub, buf.String())
		}
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cfgPath, _ := newTestConfig(t)
	out, err := runCLI(t, cfgPath, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "goalbot dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestMigrateCmd(t *testing.T) {
	t.Parallel()

	cfgPath, dbPath := newTestConfig(t)
	for i := 0; i < 2; i++ {
		out, err := runCLI(t, cfgPath, "migrate")
		if err != nil {
			t.Fatalf("migrate run %d failed: %v", i, err)
		}
		if !strings.Contains(out, dbPath) {
			t.Errorf("migrate output = %q, want the database path", out)
		}
	}
}

func TestAdminWorkflow(t *testing.T) {
	t.Parallel()

	cfgPath, dbPath := newTestConfig(t)

	steps := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{args: []string{"user", "add", "alice"}, want: "Created user 1 alice"},
		{args: []string{"user", "add", "bob"}, want: "Created user 2 bob"},
		{args: []string{"user", "add", "alice"}, wantErr: true},
		{args: []string{"board", "add", "Home", "--as", "alice"}, want: `Created board 1 "Home"`},
		{args: []string{"board", "add", "Home", "--as", "nobody"}, wantErr: true},
		{args: []string{"category", "add", "1", "Chores", "--as", "alice"}, want: `Created category 1 "Chores" on board 1`},
		{args: []string{"category", "add", "1", "Garden", "--as", "bob"}, wantErr: true},
		{args: []string{"category", "list", "--as", "bob"}, want: "No categories found."},
		{args: []string{"board", "share", "1", "--as", "alice", "--with", "bob=reader"}, want: "bob"},
		{args: []string{"board", "share", "1", "--as", "alice", "--with", "bob=boss"}, wantErr: true},
		{args: []string{"board", "list", "--as", "bob"}, want: "reader"},
		{args: []string{"category", "list", "--as", "bob"}, want: "Chores"},
		{args: []string{"goal", "list", "--as", "bob"}, want: "No goals found."},
		{args: []string{"board", "delete", "1", "--as", "bob"}, wantErr: true},
		{args: []string{"board", "delete", "x", "--as", "alice"}, wantErr: true},
	}

	for _, step := range steps {
		out, err := runCLI(t, cfgPath, step.args...)
		if step.wantErr {
			if err == nil {
				t.Errorf("%v: error = nil, want failure (output %q)", step.args, out)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v: error = %v", step.args, err)
		}
		if !strings.Contains(out, step.want) {
			t.Errorf("%v: output = %q, want it to contain %q", step.args, out, step.want)
		}
	}

	// A goal created through the chat shows up for every participant.
	store := openStore(t, dbPath)
	if _, err := store.CreateGoal(context.Background(), 1, 1, "Clean the attic"); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	out, err := runCLI(t, cfgPath, "goal", "list", "--as", "bob")
	if err != nil {
		t.Fatalf("goal list: %v", err)
	}
	for _, want := range []string{"Clean the attic", "to_do", "medium"} {
		if !strings.Contains(out, want) {
			t.Errorf("goal list output = %q, want %q", out, want)
		}
	}

	if _, err := runCLI(t, cfgPath, "board", "delete", "1", "--as", "alice"); err != nil {
		t.Fatalf("board delete: %v", err)
	}
	out, err = runCLI(t, cfgPath, "board", "list", "--as", "alice")
	if err != nil {
		t.Fatalf("board list: %v", err)
	}
	if !strings.Contains(out, "No boards found.") {
		t.Errorf("board list after delete = %q", out)
	}
}

func TestVerifyCmd(t *testing.T) {
	t.Parallel()

	cfgPath, dbPath := newTestConfig(t)
	if _, err := runCLI(t, cfgPath, "user", "add", "alice"); err != nil {
		t.Fatalf("user add: %v", err)
	}

	ctx := context.Background()
	store := openStore(t, dbPath)
	session, _, err := store.GetOrCreateSession(ctx, 4242, "alice_tg")
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if err := store.SetVerificationCode(ctx, session.ID, "ABCD2345"); err != nil {
		t.Fatalf("SetVerificationCode() error = %v", err)
	}

	out, err := runCLI(t, cfgPath, "verify", "alice", "ABCD2345")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "Chat 4242 (alice_tg) linked to user alice") {
		t.Errorf("verify output = %q", out)
	}

	_, err = runCLI(t, cfgPath, "verify", "alice", "ABCD2345")
	if errs.Code(err) != errs.CodeNotFound {
		t.Errorf("second verify error = %v, want not found", err)
	}

	got, err := store.GetSession(ctx, 4242)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !got.Verified || got.UserID.Int64 != 1 {
		t.Errorf("session = %+v, want verified and linked to user 1", got)
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{arg: "7", want: 7},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()

			got, err := parseID(tt.arg, "board")
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseID(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}
