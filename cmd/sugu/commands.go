package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/client"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/services/marketplace"
	"github.com/NordCoder/Sugu/internal/services/messages"
	"github.com/NordCoder/Sugu/internal/session"
)

var errUsage = errors.New("usage")

type app struct {
	cfg  *config.Config
	log  *zap.Logger
	sess *session.Client
	mp   *marketplace.Client
	term *terminal
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "whoami":
		p, err := a.mp.Profile(ctx)
		if err != nil {
			return err
		}
		return printJSON(p)
	case "orders":
		return a.orders(ctx)
	case "send":
		return a.send(ctx, args)
	case "watch":
		return a.watch(ctx)
	case "logout":
		return a.sess.Logout(ctx)
	}
	return errUsage
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("SUGU_EMAIL"), "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "keep the session in the durable store")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		*password = os.Getenv("SUGU_PASSWORD")
	}

	u, err := a.sess.Login(ctx, session.Credentials{Email: *email, Password: *password, RememberMe: *remember})
	if err != nil {
		return describe(err)
	}
	fmt.Printf("signed in as %s (%s)\n", u.FullName, u.Email)
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	phone := fs.String("phone", "", "full phone number with country code")
	otp := fs.String("otp", "", "code received by sms")
	remember := fs.Bool("remember", false, "keep the session in the durable store")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	u, err := a.sess.VerifyRegistration(ctx, *phone, *otp, *remember)
	if err != nil {
		return describe(err)
	}
	fmt.Printf("account confirmed, signed in as %s\n", u.Email)
	return nil
}

func (a *app) orders(ctx context.Context) error {
	orders, err := a.mp.Orders(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", o.ID, o.Status, o.TotalPrice, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (a *app) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	listing := fs.Int64("listing", 0, "listing id")
	text := fs.String("text", "", "message")
	if err := fs.Parse(args); err != nil || *listing <= 0 {
		return errUsage
	}
	m, err := a.mp.SendMessage(ctx, *listing, *text)
	if err != nil {
		return describe(err)
	}
	fmt.Printf("sent message %d\n", m.ID)
	return nil
}

// watch polls until interrupted or until the session ends.
func (a *app) watch(ctx context.Context) error {
	u, ok := a.sess.User(ctx)
	if !ok {
		return fmt.Errorf("%w: sign in first", domainsession.ErrUnauthenticated)
	}
	stopMetrics := a.metricsServer()
	defer stopMetrics()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.term.bind(cancel)

	r := messages.New(a.log, messages.NewUC(a.mp, a.term, u.ID), a.cfg.Messages.Interval)
	a.log.Info("watching messages", zap.Duration("interval", r.Interval))
	return r.Run(ctx)
}

func describe(err error) error {
	var ve *domainsession.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve
	case errors.Is(err, domainsession.ErrInvalidCredentials):
		return errors.New("wrong email or password")
	case errors.Is(err, domainsession.ErrAccountInactive):
		return errors.New("account is not activated yet, check your messages for the code")
	case errors.Is(err, domainsession.ErrThrottled):
		return errors.New("too many attempts, try again in a moment")
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
