package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/evently/evently-go/internal/bootstrap"
	domainauth "github.com/evently/evently-go/internal/domain/auth"
	"github.com/evently/evently-go/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Client *bootstrap.Client
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	client, err := bootstrap.BuildClient(cfg, logger)
	if err != nil {
		logger.ErrorContext(context.Background(), "build client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("close client", "error", cerr)
		}
	}()

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Client: client,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in and persist the credential",
			run:         runLogin,
		},
		"register": {
			name:        "register",
			description: "Create an account and sign in",
			run:         runRegister,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear stored credentials",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the current session identity",
			run:         runWhoami,
		},
		"get": {
			name:        "get",
			description: "GET an API endpoint with the auth envelope applied",
			run:         runGet,
		},
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: evently <command> [flags]")
	fmt.Fprintln(os.Stderr)
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, cmds[name].description)
	}
}

func runLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	returnTo := fs.String("redirect", "", "destination to return to after signing in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("both -email and -password are required")
	}

	ctx.Client.Sessions.Bootstrap(ctx.Ctx)
	identity, err := ctx.Client.Sessions.Establish(ctx.Ctx, *email, *password)
	if err != nil {
		return err
	}

	// The gate resolves where to land: the -redirect flag when it is a
	// safe path, the role default otherwise.
	decision := service.Decide(service.GateInput{
		Session:  ctx.Client.Sessions.Sessions().Current(),
		Policy:   service.PublicOnly(),
		Fallback: *returnTo,
	})

	fmt.Printf("signed in as %s (%s)\n", identity.Name, identity.Role)
	fmt.Printf("destination: %s\n", decision.Location)
	return nil
}

func runRegister(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(domainauth.RoleUser), "account role (user, vendor, admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" || *name == "" {
		return fmt.Errorf("-email, -password, and -name are required")
	}

	ctx.Client.Sessions.Bootstrap(ctx.Ctx)
	result, err := ctx.Client.Sessions.Enroll(ctx.Ctx, *email, *password, *name, domainauth.Role(*role))
	if err != nil {
		return err
	}

	if result.Message != "" {
		fmt.Println(result.Message)
	}
	fmt.Printf("signed in as %s (%s)\n", result.Identity.Name, result.Identity.Role)
	fmt.Printf("destination: %s\n", domainauth.DefaultDestination(result.Identity.Role))
	return nil
}

func runLogout(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("logout takes no arguments")
	}

	ctx.Client.Sessions.Bootstrap(ctx.Ctx)
	if err := ctx.Client.Sessions.Terminate(ctx.Ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	fmt.Printf("destination: %s\n", domainauth.LoginPath)
	return nil
}

func runWhoami(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("whoami takes no arguments")
	}

	ctx.Client.Sessions.Bootstrap(ctx.Ctx)
	decision := service.Decide(service.GateInput{
		Session: ctx.Client.Sessions.Sessions().Current(),
		Policy:  service.RequireAuthenticated(),
	})
	if decision.Outcome != service.OutcomeAllow {
		return fmt.Errorf("not signed in (visit %s)", decision.Location)
	}

	identity := ctx.Client.Sessions.Sessions().Current().Identity
	encoded, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func runGet(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: evently get <endpoint>")
	}
	endpoint := fs.Arg(0)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	ctx.Client.Sessions.Bootstrap(ctx.Ctx)
	ctx.Logger.InfoContext(ctx.Ctx, "dispatching request",
		"url", ctx.Client.Dispatcher.BuildURL(endpoint))

	var payload json.RawMessage
	if err := ctx.Client.Dispatcher.Do(ctx.Ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return err
	}
	return printJSON(os.Stdout, payload)
}

func printJSON(w io.Writer, payload json.RawMessage) error {
	var pretty any
	if err := json.Unmarshal(payload, &pretty); err != nil {
		_, werr := w.Write(payload)
		return werr
	}
	encoded, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
