package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"taskflow/internal/client"
	"taskflow/internal/model"
)

const defaultBaseURL = "http://localhost:8080/api"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: taskflow <command> [flags]

commands:
  signup    register a new account
  login     log in and store the session
  logout    discard the stored session
  whoami    show the current profile
  tasks     manage tasks: add, list, update, done, rm`)
}

func newClient() (*client.Client, *client.SessionStore, error) {
	store, err := client.NewSessionStore(os.Getenv("TASKFLOW_SESSION_FILE"))
	if err != nil {
		return nil, nil, err
	}
	baseURL := os.Getenv("TASKFLOW_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c, err := client.New(baseURL, store, client.WithLogoutHook(func() {
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	}))
	if err != nil {
		return nil, nil, err
	}
	return c, store, nil
}

// pendingPath is where the guard remembers a command attempted while logged
// out, so it can resume after login.
func pendingPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskflow", "pending")
}

// guard is the route-guard equivalent: protected commands require a valid,
// unexpired session. The attempted command is remembered for after login.
func guard(c *client.Client, command string, args []string) error {
	if c.Authenticated() {
		return nil
	}
	if path := pendingPath(); path != "" {
		line := strings.Join(append([]string{command}, args...), " ")
		_ = os.MkdirAll(filepath.Dir(path), 0o700)
		_ = os.WriteFile(path, []byte(line), 0o600)
	}
	return errors.New("not logged in, run 'taskflow login' first")
}

// resumePending re-runs the command that was blocked by the guard, if any.
func resumePending() {
	path := pendingPath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	_ = os.Remove(path)
	if err != nil || len(data) == 0 {
		return
	}
	fields := strings.Fields(string(data))
	fmt.Println("resuming:", strings.Join(fields, " "))
	if err := run(fields[0], fields[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
}

func run(command string, args []string) error {
	c, _, err := newClient()
	if err != nil {
		return err
	}

	switch command {
	case "signup":
		return signup(c, args)
	case "login":
		return login(c, args)
	case "logout":
		return c.Logout()
	case "whoami":
		if err := guard(c, command, args); err != nil {
			return err
		}
		return whoami(c)
	case "tasks":
		if err := guard(c, command, args); err != nil {
			return err
		}
		return tasks(c, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func signup(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	_ = fs.Parse(args)

	password, err := readPassword("password: ")
	if err != nil {
		return err
	}

	session, err := c.Signup(*name, *email, password)
	if err != nil {
		return err
	}
	fmt.Printf("signed up as %s <%s>\n", session.User.Name, session.User.Email)
	return nil
}

func login(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	_ = fs.Parse(args)

	password, err := readPassword("password: ")
	if err != nil {
		return err
	}

	session, err := c.Login(*email, password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s <%s>\n", session.User.Name, session.User.Email)
	resumePending()
	return nil
}

func whoami(c *client.Client) error {
	user, err := c.Profile()
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}

func tasks(c *client.Client, args []string) error {
	if len(args) == 0 {
		return tasksList(c)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return tasksList(c)
	case "add":
		return tasksAdd(c, rest)
	case "update":
		return tasksUpdate(c, rest)
	case "done":
		return tasksDone(c, rest)
	case "rm":
		return tasksRemove(c, rest)
	default:
		return fmt.Errorf("unknown tasks subcommand %q", sub)
	}
}

func tasksList(c *client.Client) error {
	list, err := c.ListTasks()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, t := range list {
		fmt.Printf("%s  %-12s  %s  %s\n", t.ID, t.Status, t.DueDate.Format("2006-01-02"), t.Title)
	}
	return nil
}

func tasksAdd(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("tasks add", flag.ExitOnError)
	title := fs.String("title", "", "task title")
	description := fs.String("desc", "", "task description")
	dueDate := fs.String("due", "", "due date (YYYY-MM-DD)")
	status := fs.String("status", "", "initial status")
	_ = fs.Parse(args)

	task, err := c.CreateTask(client.TaskInput{
		Title:       *title,
		Description: *description,
		DueDate:     *dueDate,
		Status:      *status,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created %s: %s\n", task.ID, task.Title)
	return nil
}

func tasksUpdate(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("tasks update", flag.ExitOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("desc", "", "new description")
	dueDate := fs.String("due", "", "new due date (YYYY-MM-DD)")
	status := fs.String("status", "", "new status")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: taskflow tasks update [flags] <task-id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	task, err := c.UpdateTask(id, client.TaskPatch{
		Title:       *title,
		Description: *description,
		DueDate:     *dueDate,
		Status:      *status,
	})
	if err != nil {
		return err
	}
	fmt.Printf("updated %s: %s [%s]\n", task.ID, task.Title, task.Status)
	return nil
}

func tasksDone(c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskflow tasks done <task-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}
	task, err := c.UpdateTask(id, client.TaskPatch{Status: model.StatusDone})
	if err != nil {
		return err
	}
	fmt.Printf("done: %s\n", task.Title)
	return nil
}

func tasksRemove(c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskflow tasks rm <task-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}
	if err := c.DeleteTask(id); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}
