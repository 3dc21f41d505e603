package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	pending  string

	calls []string
	args  [][]string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) resume() string {
	p := f.pending
	f.pending = ""
	return p
}
func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}
func (f *fakeExec) Signup(ctx context.Context) error { return f.record("signup", nil) }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) Whoami(ctx context.Context) error  { return f.record("whoami", nil) }
func (f *fakeExec) Profile(ctx context.Context) error { return f.record("profile", nil) }
func (f *fakeExec) Polls(ctx context.Context, args []string) error {
	return f.record("polls", args)
}
func (f *fakeExec) Show(ctx context.Context, args []string) error { return f.record("show", args) }
func (f *fakeExec) Vote(ctx context.Context, args []string) error { return f.record("vote", args) }
func (f *fakeExec) Watch(ctx context.Context, args []string) error {
	return f.record("watch", args)
}
func (f *fakeExec) Dashboard(ctx context.Context) error { return f.record("dashboard", nil) }
func (f *fakeExec) Create(ctx context.Context) error    { return f.record("create", nil) }
func (f *fakeExec) Close(ctx context.Context, args []string) error {
	return f.record("close", args)
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	return f.record("delete", args)
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	silence(t)

	input := strings.Join([]string{
		"help",
		"login",
		"polls active go",
		"show 3",
		"vote 3 2",
		"watch 3",
		"dashboard",
		"create",
		"close 3",
		"delete 3",
		"whoami",
		"profile",
		"logout",
		"signup",
		"",
		"foobar",
		"exit",
		"polls",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"login", "polls", "show", "vote", "watch", "dashboard", "create",
		"close", "delete", "whoami", "profile", "logout", "signup",
	}, exec.calls, "nothing runs after exit")
	assert.Equal(t, []string{"active", "go"}, exec.args[1])
	assert.Equal(t, []string{"3", "2"}, exec.args[3])
}

func TestRunREPL_ResumesAfterLogin(t *testing.T) {
	silence(t)

	exec := &fakeExec{pending: "watch 5"}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("login\nquit\n")))

	assert.Equal(t, []string{"login", "watch"}, exec.calls)
	assert.Equal(t, []string{"5"}, exec.args[1])
	assert.Empty(t, exec.pending)
}

func TestRunREPL_HelpDependsOnSession(t *testing.T) {
	lines := silence(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "s" }, bufio.NewReader(strings.NewReader("help\n")))
	assert.Contains(t, strings.Join(*lines, "\n"), "signup, login, exit")

	*lines = nil
	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "s" }, bufio.NewReader(strings.NewReader("help\n")))
	assert.Contains(t, strings.Join(*lines, "\n"), "dashboard")
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	silence(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("login\n")))
	assert.Empty(t, exec.calls)
}
