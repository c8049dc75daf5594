package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goSnap "github.com/MrEthical07/goSnap"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

type cmdRuntime struct {
	cfg     fileConfig
	client  *goSnap.Client
	logger  hclog.Logger
	closers []func()
}

func (r *cmdRuntime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "gosnap",
		Usage:   "Command-line client for the snap service",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"GOSNAP_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: trace, debug, info, warn, error (overrides config)",
				EnvVars: []string{"GOSNAP_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			signInCommand(),
			updateCommand(),
			signOutCommand(),
			sendCommand(),
			loadSnapCommand(),
			registerCommand(),
		},
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, EnvVars: []string{"GOSNAP_USERNAME"}},
		&cli.StringFlag{Name: "auth-token", Required: true, EnvVars: []string{"GOSNAP_AUTH_TOKEN"}},
		&cli.TimestampFlag{Name: "issued-at", Layout: time.RFC3339, Usage: "Issue time of the auth token (RFC 3339); read from the token when omitted"},
	}
}

// setup loads configuration and builds a client for one command.
func setup(c *cli.Context) (*cmdRuntime, error) {
	fc, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg, err := fc.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := fc.Log.Level
	if v := c.String("log-level"); v != "" {
		level = v
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "gosnap",
		Level:      hclog.LevelFromString(level),
		Output:     c.App.ErrWriter,
		JSONFormat: fc.Log.JSON,
	})

	rt := &cmdRuntime{cfg: fc, logger: logger}
	b := goSnap.New().WithConfig(cfg).WithLogger(logger)

	if fc.Cache.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{fc.Cache.RedisAddr}})
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
		b.WithRedis(rdb)
		logger.Debug("using redis token cache", "addr", fc.Cache.RedisAddr)
	}

	if fc.Audit.Enabled {
		sink, closeSink, err := auditSink(fc.Audit.File, c.App.ErrWriter)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.closers = append(rt.closers, closeSink)
		b.WithAuditSink(sink)
	}

	client, err := b.Build()
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.client = client
	rt.closers = append(rt.closers, client.Close)
	return rt, nil
}

func auditSink(path string, stderr io.Writer) (goSnap.AuditSink, func(), error) {
	if path == "" || path == "-" {
		return goSnap.NewJSONWriterSink(stderr), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit file: %w", err)
	}
	return goSnap.NewJSONWriterSink(f), func() { _ = f.Close() }, nil
}

// restore installs the session named by the session flags.
func restore(ctx context.Context, c *cli.Context, rt *cmdRuntime, fetchUpdates bool) error {
	req := goSnap.RestoreRequest{
		Username:     c.String("username"),
		AuthToken:    c.String("auth-token"),
		FetchUpdates: fetchUpdates,
	}
	if ts := c.Timestamp("issued-at"); ts != nil {
		req.IssuedAt = *ts
	}
	return rt.client.RestoreSession(ctx, req)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type sessionOutput struct {
	Username  string    `json:"username"`
	AuthToken string    `json:"auth_token"`
	IssuedAt  time.Time `json:"issued_at"`
	Email     string    `json:"email,omitempty"`
	Score     int       `json:"score"`
	Received  int       `json:"received"`
	Sent      int       `json:"sent"`
}

func currentSession(client *goSnap.Client) sessionOutput {
	s := client.Session()
	return sessionOutput{
		Username:  s.Username,
		AuthToken: s.AuthToken,
		IssuedAt:  s.IssuedAt,
		Email:     s.Account.Email,
		Score:     s.Account.Score,
		Received:  s.Account.Received,
		Sent:      s.Account.Sent,
	}
}

func signInCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign-in",
		Usage: "Sign in and print the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, EnvVars: []string{"GOSNAP_USERNAME"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, EnvVars: []string{"GOSNAP_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if _, err := rt.client.SignIn(c.Context, c.String("username"), c.String("password")); err != nil {
				return err
			}
			return writeJSON(c.App.Writer, currentSession(rt.client))
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Restore a session, refresh it from the service, and print it",
		Flags: sessionFlags(),
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := restore(c.Context, c, rt, true); err != nil {
				return err
			}
			return writeJSON(c.App.Writer, currentSession(rt.client))
		},
	}
}

func signOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign-out",
		Usage: "Restore a session and sign it out",
		Flags: sessionFlags(),
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := restore(c.Context, c, rt, false); err != nil {
				return err
			}
			return rt.client.SignOut(c.Context)
		},
	}
}

func sendCommand() *cli.Command {
	flags := append(sessionFlags(),
		&cli.StringSliceFlag{Name: "to", Required: true, Usage: "Recipient username (repeatable)"},
		&cli.PathFlag{Name: "media", Required: true, Usage: "Image or video file"},
		&cli.PathFlag{Name: "overlay", Usage: "Overlay image for a video"},
		&cli.StringFlag{Name: "caption"},
		&cli.DurationFlag{Name: "timer", Value: 5 * time.Second},
	)
	return &cli.Command{
		Name:  "send",
		Usage: "Send a snap",
		Flags: flags,
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.Path("media"))
			if err != nil {
				return err
			}
			blob, err := goSnap.NewBlob(data)
			if err != nil {
				return err
			}
			if p := c.Path("overlay"); p != "" {
				if blob.Overlay, err = os.ReadFile(p); err != nil {
					return err
				}
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := restore(c.Context, c, rt, false); err != nil {
				return err
			}
			resp, err := rt.client.SendSnap(c.Context, blob, goSnap.SnapOptions{
				Recipients: c.StringSlice("to"),
				Caption:    c.String("caption"),
				Timer:      c.Duration("timer"),
			})
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, resp)
		},
	}
}

func loadSnapCommand() *cli.Command {
	flags := append(sessionFlags(),
		&cli.StringFlag{Name: "id", Required: true, Usage: "Snap identifier"},
		&cli.PathFlag{Name: "out", Required: true, Usage: "Output file for the media; the overlay is written to <out>.overlay"},
	)
	return &cli.Command{
		Name:  "load-snap",
		Usage: "Download the media of a received snap",
		Flags: flags,
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := restore(c.Context, c, rt, false); err != nil {
				return err
			}
			blob, err := rt.client.LoadSnap(c.Context, goSnap.Snap{ID: c.String("id")})
			if err != nil {
				return err
			}

			out := c.Path("out")
			if err := os.WriteFile(out, blob.Data, 0o600); err != nil {
				return err
			}
			if blob.Zipped() {
				if err := os.WriteFile(out+".overlay", blob.Overlay, 0o600); err != nil {
					return err
				}
			}
			rt.logger.Info("snap saved", "path", out, "kind", blob.Kind.String())
			return nil
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and verify its phone number",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"GOSNAP_PASSWORD"}},
			&cli.StringFlag{Name: "birthday", Required: true, Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "phone", Required: true},
			&cli.BoolFlag{Name: "call", Usage: "Verify by voice call instead of SMS"},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			return runRegistration(c.Context, rt.client.NewRegistration(), registrationInput{
				Email:    c.String("email"),
				Password: c.String("password"),
				Birthday: c.String("birthday"),
				Username: c.String("username"),
				Phone:    c.String("phone"),
				ViaSMS:   !c.Bool("call"),
			}, c.App.Reader, c.App.ErrWriter)
		},
	}
}

type registrationInput struct {
	Email    string
	Password string
	Birthday string
	Username string
	Phone    string
	ViaSMS   bool
}

// runRegistration drives reg through phone verification, prompting for the
// code on in.
func runRegistration(ctx context.Context, reg *goSnap.Registration, in registrationInput, codeIn io.Reader, prompt io.Writer) error {
	res, err := reg.RegisterEmail(ctx, in.Email, in.Password, in.Birthday)
	if err != nil {
		return err
	}
	if len(res.UsernameSuggestions) > 0 {
		fmt.Fprintf(prompt, "suggested usernames: %s\n", strings.Join(res.UsernameSuggestions, ", "))
	}

	if err := reg.RegisterUsername(ctx, in.Username, in.Email, "", ""); err != nil {
		return err
	}
	if _, err := reg.SendPhoneVerification(ctx, in.Phone, in.ViaSMS); err != nil {
		return err
	}

	fmt.Fprint(prompt, "verification code: ")
	code, err := bufio.NewReader(codeIn).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err := reg.VerifyPhoneNumberWithCode(ctx, code); err != nil {
		return err
	}
	fmt.Fprintf(prompt, "registration %s\n", reg.State().Step)
	return nil
}
