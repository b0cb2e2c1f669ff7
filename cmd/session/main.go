package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/Sadraka/maherkar-sub001/internal/logging"
	"github.com/Sadraka/maherkar-sub001/otp"
	"github.com/Sadraka/maherkar-sub001/session"
	"github.com/Sadraka/maherkar-sub001/store"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("session client failed, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("session client stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	st, closeStore, err := store.Open(c)
	if err != nil {
		return fmt.Errorf("store.Open: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	var options []session.Option
	if c.GetSurfaceOTPCode() {
		options = append(options, session.WithNotifier(terminalNotifier{out: os.Stdout}))
	}
	sess := session.NewFromConfig(c, st, options...)
	defer sess.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRepl(c, sess, os.Stdin, os.Stdout)
	defer r.shutdown()
	return r.loop(ctx)
}

// terminalNotifier prints issued codes next to the prompt.
type terminalNotifier struct {
	out *os.File
}

var _ otp.Notifier = terminalNotifier{}

func (n terminalNotifier) Notify(_ context.Context, ch *otp.Challenge, code string) {
	fmt.Fprintf(n.out, "code for %s (%s): %s\n", ch.Phone, ch.Purpose, code)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("route guard listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
