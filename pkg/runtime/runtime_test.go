package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateRoundTripsThroughDisk(t *testing.T) {
	root := t.TempDir()
	want := &State{
		ID:        "c1",
		Bundle:    "alpine:latest",
		Status:    StatusCreated,
		Resources: &Resources{CPULimit: 1.5, MemoryLimit: 256 << 20},
		CreatedAt: time.Now().Truncate(time.Second),
	}

	if err := writeState(root, want); err != nil {
		t.Fatalf("writeState: %v", err)
	}

	got, err := readState(root, "c1")
	if err != nil {
		t.Fatalf("readState: %v", err)
	}
	if got.ID != want.ID || got.Status != want.Status || got.Bundle != want.Bundle {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.Resources == nil || got.Resources.CPULimit != want.Resources.CPULimit {
		t.Fatalf("resources not preserved: got %+v", got.Resources)
	}

	path := filepath.Join(root, "containers", "c1", "config.json")
	if _, err := readState(filepath.Dir(filepath.Dir(path)), "c1"); err != nil {
		t.Fatalf("expected config.json at conventional path: %v", err)
	}
}

func TestReadStateMissingReturnsNotFound(t *testing.T) {
	root := t.TempDir()
	_, err := readState(root, "does-not-exist")
	if err == nil {
		t.Fatal("expected error for missing state")
	}
}

func TestScanStatesRehydratesAllContainers(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"a", "b", "c"} {
		if err := writeState(root, &State{ID: id, Status: StatusExited}); err != nil {
			t.Fatalf("writeState(%s): %v", id, err)
		}
	}

	states, err := scanStates(root)
	if err != nil {
		t.Fatalf("scanStates: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("got %d states, want 3", len(states))
	}
	for _, id := range []string{"a", "b", "c"} {
		if states[id] == nil {
			t.Fatalf("missing rehydrated state for %s", id)
		}
	}
}

func TestScanStatesEmptyRootReturnsEmptyMap(t *testing.T) {
	root := t.TempDir()
	states, err := scanStates(filepath.Join(root, "nonexistent"))
	if err != nil {
		t.Fatalf("scanStates on missing root: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("got %d states, want 0", len(states))
	}
}

func TestValidateTransitionEnforcesLifecycle(t *testing.T) {
	cases := []struct {
		op      string
		from    Status
		wantErr bool
	}{
		{"start", StatusCreated, false},
		{"start", StatusRunning, true},
		{"pause", StatusRunning, false},
		{"pause", StatusPaused, true},
		{"resume", StatusPaused, false},
		{"resume", StatusRunning, true},
		{"exec", StatusRunning, false},
		{"exec", StatusCreated, true},
		{"update", StatusPaused, false},
		{"update", StatusExited, true},
	}
	for _, c := range cases {
		err := validateTransition(c.from, c.op)
		if (err != nil) != c.wantErr {
			t.Errorf("validateTransition(%s, %q): err = %v, wantErr = %v", c.from, c.op, err, c.wantErr)
		}
	}
}

func TestValidateKillAllowedFromAnyNonTerminalState(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusRunning, StatusPaused, StatusStopping} {
		if err := validateKill(s); err != nil {
			t.Errorf("validateKill(%s): unexpected error %v", s, err)
		}
	}
	if err := validateKill(StatusExited); err == nil {
		t.Error("validateKill(Exited): expected error")
	}
}

func TestValidateDeleteRejectsRunningWithoutForce(t *testing.T) {
	if err := validateDelete(StatusRunning, false); err == nil {
		t.Error("expected error deleting a running container without force")
	}
	if err := validateDelete(StatusRunning, true); err != nil {
		t.Errorf("unexpected error deleting running container with force: %v", err)
	}
	if err := validateDelete(StatusExited, false); err != nil {
		t.Errorf("unexpected error deleting exited container: %v", err)
	}
}

func TestWriteFileAtomicProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pidfile")
	if err := writeFileAtomic(path, []byte("1234")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	if err := writePidFile(path, 5678); err != nil {
		t.Fatalf("writePidFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if string(data) != "5678" {
		t.Fatalf("pid file = %q, want 5678", data)
	}
}
