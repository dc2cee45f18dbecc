package authrpc

import "testing"

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("start user=glenda auth-id=main proto=ed25519")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Verb != "start" {
		t.Fatalf("verb = %q, want start", cmd.Verb)
	}
	want := map[string]string{"user": "glenda", "auth-id": "main", "proto": "ed25519"}
	for k, v := range want {
		if cmd.Params[k] != v {
			t.Errorf("param %q = %q, want %q", k, cmd.Params[k], v)
		}
	}
}

func TestParseCommandEmpty(t *testing.T) {
	if _, err := ParseCommand("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestParseCommandMalformedParam(t *testing.T) {
	if _, err := ParseCommand("start nokeyvalue"); err == nil {
		t.Fatal("expected error for parameter missing '='")
	}
}

func TestCommandRequire(t *testing.T) {
	cmd, err := ParseCommand("start user=glenda")
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Require("user"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Require("auth-id"); err == nil {
		t.Fatal("expected error for missing auth-id")
	}
}
