// Package console is the terminal front end: views protected by the auth
// guard, a navigator that follows session events, and a line-oriented shell.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"admin-console/internal/event"
	"admin-console/internal/guard"
	"admin-console/internal/model"
	"admin-console/internal/resource"
	"admin-console/internal/service"
	"admin-console/internal/session"
	"admin-console/pkg/apierror"
)

var errNoScreen = errors.New("open users or universities first")

const helpText = `Commands:
  login <email> <password>     start a session
  logout                       end the session
  whoami                       show the signed-in account
  open <view>                  home, users, universities or login
  list [page] [size]           load a page of the current list
  next | prev | refresh        move through the current list
  filter [text]                filter the loaded page; no text clears
  create key=value ...         users: email password role status; universities: name
  update <id> key=value ...    change fields of an item
  delete <id>                  delete an item
  restore <id>                 restore a deleted university
  show-deleted on|off          include deleted universities
  help                         this text
  quit                         leave`

type Deps struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Universities *service.UniversityService
	Store        *session.Store
	Guard        *guard.Guard
	Events       <-chan event.Event
	Format       Format
	PageSize     int
	Out          io.Writer
	Logger       *slog.Logger
}

type Shell struct {
	auth     *service.AuthService
	nav      *Navigator
	views    map[string]guard.View
	screens  map[string]screen
	renderer *Renderer
	events   <-chan event.Event
	out      io.Writer
	logger   *slog.Logger
	noticed  bool
}

func NewShell(d Deps) *Shell {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.PageSize < 1 {
		d.PageSize = 10
	}

	logger := d.Logger.With("component", "console")
	renderer := NewRenderer(d.Format)
	nav := NewNavigator(ViewLogin, d.Out)

	users := newUserScreen(d.Users, renderer, d.PageSize, resource.WithLogger(logger), resource.WithName(ViewUsers))
	universities := newUniversityScreen(d.Universities, renderer, d.PageSize, resource.WithLogger(logger), resource.WithName(ViewUniversities))
	home := &homeView{users: d.Users, universities: d.Universities, store: d.Store, renderer: renderer}

	s := &Shell{
		auth:     d.Auth,
		nav:      nav,
		views:    map[string]guard.View{},
		screens:  map[string]screen{ViewUsers: users, ViewUniversities: universities},
		renderer: renderer,
		events:   d.Events,
		out:      d.Out,
		logger:   logger,
	}
	for _, v := range []guard.View{loginView{}, home, users, universities} {
		s.views[v.Name()] = d.Guard.Protect(v, nav)
	}
	return s
}

// Navigator exposes the current view, mainly for tests and the prompt.
func (s *Shell) Navigator() *Navigator {
	return s.nav
}

// Run reads commands until quit or end of input. With prompt set it first
// opens the home view and prints a prompt before each line.
func (s *Shell) Run(ctx context.Context, in io.Reader, prompt bool) error {
	if prompt {
		_, _ = s.Handle(ctx, "open "+ViewHome)
	}

	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprintf(s.out, "%s> ", s.nav.Current())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if quit, _ := s.Handle(ctx, scanner.Text()); quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Handle runs one command line and prints its error, if any. An unauthorized
// error already announced by the navigator is not printed twice.
func (s *Shell) Handle(ctx context.Context, line string) (bool, error) {
	s.noticed = false
	quit, err := s.Exec(ctx, line)
	if err == nil {
		return quit, nil
	}

	s.logger.Debug("command failed", "line", firstWord(line), "error", err)
	if apierror.KindOf(err) == apierror.KindUnauthorized && s.noticed {
		return quit, err
	}
	if msg := Describe(err); msg != "" {
		fmt.Fprintln(s.out, msg)
	}
	return quit, err
}

// Exec runs one command line without printing its error.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	args, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}
	defer s.drain()

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "help", "?":
		_, err = fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return true, nil
	case "login":
		if len(rest) != 2 {
			return false, errors.New("usage: login <email> <password>")
		}
		err = s.login(ctx, rest[0], rest[1])
	case "logout":
		err = s.logout(ctx)
	case "whoami":
		err = s.whoami(ctx)
	case "open":
		if len(rest) != 1 {
			return false, errors.New("usage: open <view>")
		}
		err = s.Open(ctx, strings.ToLower(rest[0]))
	default:
		err = s.screenCommand(ctx, cmd, rest)
	}
	return false, err
}

// Open navigates to a view. A refused protected view lands on login.
func (s *Shell) Open(ctx context.Context, name string) error {
	v, ok := s.views[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	err := v.Render(ctx, s.out)
	if errors.Is(err, guard.ErrUnauthenticated) {
		return s.views[ViewLogin].Render(ctx, s.out)
	}
	s.nav.Go(name)
	return err
}

func (s *Shell) login(ctx context.Context, email, password string) error {
	if _, err := s.auth.Login(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Logged in as %s.\n", email)

	next := s.nav.TakeReturn()
	if next == "" {
		next = ViewHome
	}
	return s.Open(ctx, next)
}

func (s *Shell) logout(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	s.nav.Go(ViewLogin)
	fmt.Fprintln(s.out, "Logged out.")
	return err
}

func (s *Shell) whoami(ctx context.Context) error {
	user, err := s.auth.Me(ctx)
	if err != nil {
		return err
	}
	return s.renderer.Record(s.out, []Field{
		{Label: "ID", Value: strconv.FormatInt(user.ID, 10)},
		{Label: "Email", Value: user.Email},
		{Label: "Role", Value: model.RoleLabel(user.Role)},
	}, user)
}

func (s *Shell) screenCommand(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list", "next", "prev", "refresh", "filter", "create", "update", "delete", "restore", "show-deleted":
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}

	sc, ok := s.screens[s.nav.Current()]
	if !ok {
		return errNoScreen
	}

	var err error
	switch cmd {
	case "list":
		err = s.list(ctx, sc, args)
	case "next":
		err = sc.Next(ctx)
	case "prev":
		err = sc.Prev(ctx)
	case "refresh":
		err = sc.Refresh(ctx)
	case "filter":
		sc.SetFilter(strings.Join(args, " "))
	case "create":
		var fields map[string]string
		if fields, err = parseFields(args); err == nil {
			err = sc.Create(ctx, s.out, fields)
		}
	case "update":
		if len(args) < 2 {
			return errors.New("usage: update <id> key=value ...")
		}
		id, perr := parseID(args[0])
		if perr != nil {
			return perr
		}
		var fields map[string]string
		if fields, err = parseFields(args[1:]); err == nil {
			err = sc.Update(ctx, s.out, id, fields)
		}
	case "delete", "restore":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <id>", cmd)
		}
		id, perr := parseID(args[0])
		if perr != nil {
			return perr
		}
		if cmd == "delete" {
			err = sc.Remove(ctx, id)
		} else {
			err = sc.Restore(ctx, id)
		}
	case "show-deleted":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: show-deleted on|off")
		}
		err = sc.ShowDeleted(ctx, args[0] == "on")
	}

	// A failed reload still leaves a usable page behind; anything else
	// leaves the screen as it was.
	if err != nil && !errors.Is(err, resource.ErrReload) {
		return err
	}
	if showErr := sc.Show(s.out); showErr != nil {
		return showErr
	}
	return err
}

func (s *Shell) list(ctx context.Context, sc screen, args []string) error {
	if len(args) > 2 {
		return errors.New("usage: list [page] [size]")
	}

	nums := []int{1, 0}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("not a number: %q", arg)
		}
		nums[i] = n
	}
	if len(args) == 2 && nums[1] == 0 {
		nums[1] = -1
	}
	return sc.List(ctx, nums[0], nums[1])
}

// drain applies the session events that arrived while a command ran.
func (s *Shell) drain() {
	if s.events == nil {
		return
	}
	for {
		select {
		case e, ok := <-s.events:
			if !ok {
				s.events = nil
				return
			}
			if s.nav.Handle(e) {
				s.noticed = true
			}
		default:
			return
		}
	}
}

func firstWord(line string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	return word
}
