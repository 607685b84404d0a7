package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestMain_Help runs the binary's main in a subprocess, since cmd.Execute exits on error
func TestMain_Help(t *testing.T) {
	if os.Getenv("CWTONE_RUN_MAIN") == "1" {
		os.Args = []string{"cwtone", "--help"}
		main()
		return
	}

	home := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=TestMain_Help")
	cmd.Env = append(os.Environ(), "CWTONE_RUN_MAIN=1", "HOME="+home, "XDG_CONFIG_HOME="+home)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("main() failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "decode") {
		t.Errorf("help output should list the decode command, got: %s", out)
	}
}
