package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sadraka/maherkar-sub001/api"
	"github.com/Sadraka/maherkar-sub001/broadcast"
	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/Sadraka/maherkar-sub001/otp"
	"github.com/Sadraka/maherkar-sub001/server"
	"github.com/Sadraka/maherkar-sub001/session"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/rs/zerolog/log"
)

const usage = `commands:
  login <phone>                      request a login code
  register <phone> <EM|JS> <name>    request a registration code
  verify <code>                      submit the code for the last request
  whoami                             print the signed-in user
  refresh                            reload the user from the backend
  usertype <EM|JS>                   switch the user type
  logout                             sign out
  state                              print the session state
  keepalive [interval]               reload the user periodically, e.g. keepalive 1m
  serve                              serve pages behind the route guard
  quit`

type repl struct {
	cfg   config.Config
	sess  *session.Session
	in    *bufio.Scanner
	out   io.Writer
	shell *session.Shell

	challenge *otp.Challenge
	keepalive context.CancelFunc
	server    *http.Server
}

func newRepl(cfg config.Config, sess *session.Session, in io.Reader, out io.Writer) *repl {
	r := &repl{
		cfg:   cfg,
		sess:  sess,
		in:    bufio.NewScanner(in),
		out:   out,
		shell: sess.NewShell("terminal"),
	}
	r.shell.Mount()
	sess.Subscribe(func(e broadcast.Event) {
		fmt.Fprintf(r.out, "\n[%s] session ended\n", e)
	})
	return r
}

func (r *repl) loop(ctx context.Context) error {
	r.sess.FetchUserData(ctx)
	r.shell.Sync()
	r.printState()
	fmt.Fprintln(r.out, usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for r.in.Scan() {
			lines <- r.in.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return r.in.Err()
			}
			if quit := r.dispatch(ctx, strings.Fields(line)); quit {
				return nil
			}
		}
	}
}

func (r *repl) dispatch(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return false
	}
	var err error
	switch cmd, rest := strings.ToLower(args[0]), args[1:]; cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, usage)
	case "login":
		err = r.login(ctx, rest)
	case "register":
		err = r.register(ctx, rest)
	case "verify":
		err = r.verify(ctx, rest)
	case "whoami":
		err = r.whoami(ctx)
	case "refresh":
		r.sess.RefreshUserData(ctx)
		r.shell.Sync()
		r.printState()
	case "usertype":
		err = r.userType(ctx, rest)
	case "logout":
		r.sess.Logout()
	case "state":
		r.printState()
	case "keepalive":
		err = r.startKeepalive(ctx, rest)
	case "serve":
		r.serve()
	default:
		fmt.Fprintf(r.out, "unknown command %q\n", cmd)
	}
	if err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintln(r.out, "error:", api.UserMessage(err))
	}
	return false
}

func (r *repl) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <phone>")
	}
	ch, err := r.sess.RequestLoginCode(ctx, args[0])
	if err != nil {
		return err
	}
	r.challenge = ch
	fmt.Fprintln(r.out, "code sent, continue with: verify <code>")
	return nil
}

func (r *repl) register(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: register <phone> <EM|JS> <full name>")
	}
	ch, err := r.sess.RequestRegisterCode(ctx, args[0], otp.RegisterPayload{
		UserType: args[1],
		FullName: strings.Join(args[2:], " "),
	})
	if err != nil {
		return err
	}
	r.challenge = ch
	fmt.Fprintln(r.out, "code sent, continue with: verify <code>")
	return nil
}

func (r *repl) verify(ctx context.Context, args []string) error {
	if r.challenge == nil {
		return errors.New("request a code first")
	}
	if len(args) != 1 {
		return errors.New("usage: verify <code>")
	}
	p, err := r.sess.Verify(ctx, r.challenge, args[0])
	if err != nil {
		return err
	}
	r.shell.Sync()
	r.printUser(p)
	return nil
}

func (r *repl) whoami(ctx context.Context) error {
	p, err := r.sess.GetUserData(ctx)
	if err != nil {
		return err
	}
	r.printUser(p)
	return nil
}

func (r *repl) userType(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: usertype <EM|JS>")
	}
	p, err := r.sess.UpdateUserType(ctx, args[0])
	if err != nil {
		return err
	}
	r.shell.Sync()
	r.printUser(p)
	return nil
}

func (r *repl) startKeepalive(ctx context.Context, args []string) error {
	var interval time.Duration
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("parse interval: %w", err)
		}
		interval = d
	}
	if r.keepalive != nil {
		r.keepalive()
	}
	kctx, cancel := context.WithCancel(ctx)
	r.keepalive = cancel
	go r.sess.Keepalive(kctx, interval)
	fmt.Fprintln(r.out, "keepalive started")
	return nil
}

func (r *repl) serve() {
	if r.server != nil {
		fmt.Fprintln(r.out, "already serving on", r.server.Addr)
		return
	}
	r.server = &http.Server{
		Addr:              r.cfg.GetListenAddr(),
		Handler:           server.New(r.cfg, http.HandlerFunc(r.page)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := listenAndServe(r.server); err != nil {
			log.Error().Err(err).Msg("route guard stopped")
		}
	}()
}

// page renders what the terminal shell currently shows.
func (r *repl) page(w http.ResponseWriter, req *http.Request) {
	user, ok := r.shell.View()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !ok || user == nil {
		fmt.Fprintf(w, "%s: signed out\n", req.URL.Path)
		return
	}
	fmt.Fprintf(w, "%s: %s (%s)\n", req.URL.Path, displayName(user), user.UserType)
}

func (r *repl) shutdown() {
	if r.keepalive != nil {
		r.keepalive()
	}
	if r.server != nil {
		if err := shutdown(r.server); err != nil {
			log.Warn().Err(err).Msg("stopping route guard")
		}
	}
	r.shell.Unmount()
}

func (r *repl) printState() {
	st := r.sess.State()
	if !st.Authenticated || st.User == nil {
		fmt.Fprintln(r.out, "signed out")
		return
	}
	r.printUser(st.User)
}

func (r *repl) printUser(p *users.Profile) {
	if p == nil {
		fmt.Fprintln(r.out, "signed out")
		return
	}
	line := fmt.Sprintf("%s, %s, %s", displayName(p), p.Phone, p.UserType)
	if p.Placeholder {
		line += " (profile not loaded yet)"
	}
	fmt.Fprintln(r.out, line)
}

func displayName(p *users.Profile) string {
	for _, name := range []string{p.FullName, p.Username, p.Phone} {
		if name != "" {
			return name
		}
	}
	return "unknown"
}
