package systemd

import (
	"context"
	"errors"
	"testing"
)

// fakeRunner records invocations and replays canned results.
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)

	// Keyed by "action unit" for convenience.
	key := args[len(args)-2] + " " + args[len(args)-1]
	return f.outputs[key], f.errs[key]
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		err    error
		want   Status
	}{
		{
			name:   "active unit",
			stdout: "active\n",
			want:   StatusActive,
		},
		{
			name:   "inactive unit",
			stdout: "inactive\n",
			err:    errors.New("exit status 3"),
			want:   StatusInactive,
		},
		{
			name:   "failed unit",
			stdout: "failed\n",
			err:    errors.New("exit status 3"),
			want:   StatusInactive,
		},
		{
			name:   "command failure",
			stdout: "",
			err:    errors.New("no such binary"),
			want:   StatusUnknown,
		},
		{
			name:   "garbage output",
			stdout: "something unexpected",
			want:   StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.outputs["is-active llama-a.service"] = tt.stdout
			runner.errs["is-active llama-a.service"] = tt.err

			ctl := NewUserController("", WithRunner(runner))

			got := ctl.Status(context.Background(), "llama-a.service")
			if got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandShape(t *testing.T) {
	runner := newFakeRunner()
	ctl := NewUserController("/usr/bin/systemctl", WithRunner(runner))

	ctx := context.Background()
	if err := ctl.Start(ctx, "llama-a.service"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := ctl.Stop(ctx, "llama-b.service"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	ctl.Status(ctx, "llama-a.service")

	want := [][]string{
		{"/usr/bin/systemctl", "--user", "start", "llama-a.service"},
		{"/usr/bin/systemctl", "--user", "stop", "llama-b.service"},
		{"/usr/bin/systemctl", "--user", "is-active", "llama-a.service"},
	}

	if len(runner.calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(runner.calls), len(want))
	}

	for i, call := range runner.calls {
		for j, arg := range call {
			if arg != want[i][j] {
				t.Errorf("call %d arg %d = %q, want %q", i, j, arg, want[i][j])
			}
		}
	}
}

func TestStartErrorPropagates(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["start llama-a.service"] = errors.New("unit not found")

	ctl := NewUserController("", WithRunner(runner))

	if err := ctl.Start(context.Background(), "llama-a.service"); err == nil {
		t.Error("Start() error = nil, want non-nil")
	}
}

func TestStatusString(t *testing.T) {
	if got := StatusActive.String(); got != "active" {
		t.Errorf("StatusActive.String() = %q, want %q", got, "active")
	}
	if got := StatusInactive.String(); got != "inactive" {
		t.Errorf("StatusInactive.String() = %q, want %q", got, "inactive")
	}
	if got := StatusUnknown.String(); got != "unknown" {
		t.Errorf("StatusUnknown.String() = %q, want %q", got, "unknown")
	}
}
