package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"client_go/internal/config"
	"client_go/internal/domain"
	"client_go/internal/service"
	"client_go/internal/thread"
	"client_go/internal/tui"
)

func main() {
	if err := newCLI(new(app)).RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", explain(err))
		os.Exit(1)
	}
}

// newCLI builds the command tree. Before fills a from the environment and
// flags, so every action sees the wired client.
func newCLI(a *app) *cli.App {
	return &cli.App{
		Name:  "chat",
		Usage: "chat with friends and groups from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "backend base URL (overrides CHAT_API_URL)"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout (overrides CHAT_REQUEST_TIMEOUT)"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if u := c.String("api-url"); u != "" {
				cfg.APIURL = strings.TrimRight(u, "/")
			}
			if d := c.Duration("timeout"); d > 0 {
				cfg.RequestTimeout = d
			}
			if !cfg.Debug {
				log.SetOutput(io.Discard)
			}
			built, err := newApp(cfg)
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
		After: func(c *cli.Context) error {
			a.close()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "log in and remember the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"CHAT_PASSWORD"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					sess, err := a.auth.Login(c.Context, service.LoginInput{
						Email:    c.String("email"),
						Password: c.String("password"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "logged in as %s\n", sess.UserIdentity)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"CHAT_PASSWORD"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					err := a.auth.Register(c.Context, service.RegisterInput{
						Name:     c.String("name"),
						LastName: c.String("last-name"),
						Email:    c.String("email"),
						Password: c.String("password"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "registered, now run: chat login")
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "forget the stored session",
				Action: func(c *cli.Context) error {
					return a.auth.Logout(c.Context)
				},
			},
			{
				Name:  "whoami",
				Usage: "show the logged in identity",
				Action: func(c *cli.Context) error {
					sess, err := a.auth.WhoAmI(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, sess.UserIdentity)
					if sess.ExpiresAt != nil {
						fmt.Fprintf(c.App.Writer, "expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
					}
					return nil
				},
			},
			{
				Name:  "friends",
				Usage: "list friends",
				Flags: []cli.Flag{&cli.StringFlag{Name: "filter", Aliases: []string{"f"}}},
				Action: func(c *cli.Context) error {
					if _, err := a.friends.Load(c.Context); err != nil {
						return err
					}
					printLines(c, a.friends.Filter(c.String("filter")))
					return nil
				},
			},
			{
				Name:  "requests",
				Usage: "list incoming friend requests",
				Action: func(c *cli.Context) error {
					reqs, err := a.requests.Load(c.Context)
					if err != nil {
						return err
					}
					for _, r := range reqs {
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", r.ID, r.SenderEmail)
					}
					return nil
				},
			},
			{
				Name:      "request",
				Usage:     "send a friend request",
				ArgsUsage: "<email>",
				Action: func(c *cli.Context) error {
					return a.requests.Send(c.Context, c.Args().First())
				},
			},
			respondCommand("accept", true, a),
			respondCommand("reject", false, a),
			{
				Name:  "groups",
				Usage: "list your groups",
				Action: func(c *cli.Context) error {
					groups, err := a.groups.Load(c.Context)
					if err != nil {
						return err
					}
					for _, g := range groups {
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", g.GroupID, g.Name)
					}
					return nil
				},
			},
			groupCommand(a),
			{
				Name:      "messages",
				Usage:     "print a conversation",
				ArgsUsage: "<peer email> | --group <id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "group", Aliases: []string{"g"}}},
				Action: func(c *cli.Context) error {
					e := thread.NewEngine(a.client, a.sessions)
					defer e.Close()
					if err := e.Open(c.Context, threadRef(c)); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "# "+e.Title())
					for _, m := range e.Messages() {
						fmt.Fprintln(c.App.Writer, formatLine(m, e.IsOwn(m)))
					}
					return nil
				},
			},
			{
				Name:      "send",
				Usage:     "send a message",
				ArgsUsage: "<peer email> <text...> | --group <id> <text...>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "group", Aliases: []string{"g"}}},
				Action: func(c *cli.Context) error {
					ref := threadRef(c)
					words := c.Args().Slice()
					if ref.Kind == domain.ThreadDirect && len(words) > 0 {
						words = words[1:]
					}
					e := thread.NewEngine(a.client, a.sessions)
					defer e.Close()
					if err := e.Open(c.Context, ref); err != nil {
						return err
					}
					msg, err := e.Append(c.Context, strings.Join(words, " "))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, formatLine(*msg, true))
					return nil
				},
			},
			{
				Name:  "tui",
				Usage: "open the interactive client",
				Action: func(c *cli.Context) error {
					f, err := tea.LogToFile(a.cfg.LogFile, "chat")
					if err != nil {
						return fmt.Errorf("open log file: %w", err)
					}
					defer f.Close()

					p := tea.NewProgram(tui.New(a.services()), tea.WithAltScreen(), tea.WithMouseCellMotion())
					_, err = p.Run()
					return err
				},
			},
		},
	}
}

func respondCommand(name string, accept bool, a *app) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     name + " a friend request",
		ArgsUsage: "<request id>",
		Action: func(c *cli.Context) error {
			_, err := a.requests.Respond(c.Context, c.Args().First(), accept)
			return err
		},
	}
}

func groupCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "manage a group",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a group with some friends",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringSliceFlag{Name: "member", Aliases: []string{"m"}},
				},
				Action: func(c *cli.Context) error {
					draft := a.draft
					if _, err := draft.Load(c.Context); err != nil {
						return err
					}
					for _, m := range c.StringSlice("member") {
						draft.Toggle(strings.TrimSpace(m))
					}
					g, err := draft.Create(c.Context, c.String("name"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s\t%s\n", g.GroupID, g.Name)
					return nil
				},
			},
			{
				Name:      "members",
				Usage:     "list members and friends you could add",
				ArgsUsage: "<group id>",
				Action: func(c *cli.Context) error {
					ms := service.NewGroupMembership(a.client, nil)
					meta, err := ms.Load(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "# "+meta.Name)
					printLines(c, ms.Members())
					if others := ms.NonMembers(); len(others) > 0 {
						fmt.Fprintln(c.App.Writer, "# friends not in the group")
						printLines(c, others)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "add a member",
				ArgsUsage: "<group id> <email>",
				Action: func(c *cli.Context) error {
					ms := service.NewGroupMembership(a.client, nil)
					if _, err := ms.Load(c.Context, c.Args().Get(0)); err != nil {
						return err
					}
					return ms.AddMember(c.Context, c.Args().Get(1))
				},
			},
		},
	}
}

func threadRef(c *cli.Context) domain.ThreadRef {
	if g := c.String("group"); g != "" {
		return domain.GroupThread(g)
	}
	return domain.DirectThread(c.Args().First())
}

func formatLine(m domain.Message, own bool) string {
	sender := m.SenderEmail
	if own {
		sender = "you"
	}
	stamp := ""
	if m.SentAt != nil && !m.SentAt.IsZero() {
		stamp = m.SentAt.Local().Format("2006-01-02 15:04") + " "
	}
	return stamp + sender + ": " + m.Content
}

func printLines(c *cli.Context, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(c.App.Writer, l)
	}
}

func explain(err error) string {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated) && !errors.As(err, &apiErr):
		return "not logged in, run: chat login"
	case errors.Is(err, domain.ErrNetwork):
		return "cannot reach the server: " + err.Error()
	}
	return err.Error()
}
