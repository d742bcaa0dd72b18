package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/rtgui/internal/version"
)

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "replay", "config", "version"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestVersionPrintsModule(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), version.Module()+" ") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestConfigInitThenShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	root := newRootCmd()
	root.SetArgs([]string{"config", "init", "-c", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v", err)
	}
	root = newRootCmd()
	root.SetArgs([]string{"config", "init", "-c", path})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected init without --overwrite to fail on an existing file")
	}

	root = newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show", "-c", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"config_version: 1", "depth: 64", "click_to_activate: true"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in config output:\n%s", want, out.String())
		}
	}
}

func TestReplayRequiresScript(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"replay"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected replay without a script to fail")
	}
}
