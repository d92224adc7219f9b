package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"nursery-tracker/internal/api"
	"nursery-tracker/internal/config"
	"nursery-tracker/internal/dashboard"
	"nursery-tracker/internal/records"
	"nursery-tracker/internal/repository/sqlite"
	"nursery-tracker/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.State.Path)
	if err != nil {
		logger.Fatalf("open state db: %v", err)
	}
	defer db.Close()

	store := sqlite.NewCredentialStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Fatalf("init credential store: %v", err)
	}

	// the client and manager reference each other: the client reads the
	// token the manager owns, the manager logs in through the client
	var manager *session.Manager
	client := api.NewClient(cfg.API.BaseURL, api.TokenFunc(func() string { return manager.Token() }), logger)
	manager = session.NewManager(client, store, logger)
	manager.Restore(ctx)

	dash := dashboard.NewService(client, cfg.Export.Dir, logger)

	app := &app{
		logger:  logger,
		client:  client,
		manager: manager,
		dash:    dash,
	}

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, records.ErrDeleteCancelled) {
			fmt.Println("cancelled")
			return
		}
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

type app struct {
	logger  *logrus.Logger
	client  *api.Client
	manager *session.Manager
	dash    *dashboard.Service
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest, a.manager.Login)
	case "register":
		return a.login(ctx, rest, a.manager.Register)
	case "logout":
		a.manager.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "whoami":
		if !a.manager.Authenticated() {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Println(a.manager.Current().Username)
		return nil
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "stats":
		return a.stats(ctx)
	case "export":
		return a.export(ctx)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string, authenticate func(context.Context, string, string) error) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	if *username == "" || *password == "" {
		return errors.New("both -username and -password are required")
	}
	if err := authenticate(ctx, *username, *password); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", a.manager.Current().Username)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	ctrl, err := a.controller(args)
	if err != nil {
		return err
	}
	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	entity := ctrl.Entity()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(entity.Columns, "\t"))
	for _, record := range ctrl.Records() {
		fmt.Fprintln(w, strings.Join(entity.Row(record), "\t"))
	}
	return w.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: nursery add <entity> [field flags]")
	}
	entity, ok := records.ByName(args[0])
	if !ok {
		return unknownEntity(args[0])
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("add "+entity.Name, flag.ExitOnError)
	values := make(map[string]*string, len(entity.Fields))
	for _, field := range entity.Fields {
		values[field.Key] = fs.String(field.Key, "", field.Label)
	}
	_ = fs.Parse(args[1:])

	ctrl := records.NewController(entity, a.client, nil, a.logger)
	ctrl.OpenForm()
	for key, value := range values {
		ctrl.SetField(key, *value)
	}
	if err := ctrl.Create(ctx); err != nil {
		return err
	}
	fmt.Printf("%s record created\n", entity.Name)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	_ = fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: nursery delete <entity> <id>")
	}
	entity, ok := records.ByName(fs.Arg(0))
	if !ok {
		return unknownEntity(fs.Arg(0))
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	confirm := promptConfirm
	if *yes {
		confirm = func(string) bool { return true }
	}

	ctrl := records.NewController(entity, a.client, confirm, a.logger)
	if err := ctrl.Delete(ctx, fs.Arg(1)); err != nil {
		return err
	}
	fmt.Printf("%s record %s deleted\n", entity.Name, fs.Arg(1))
	return nil
}

func (a *app) stats(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	stats, err := a.dash.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Received\t%d\n", stats.TotalReceived)
	fmt.Fprintf(w, "Produced\t%d\n", stats.TotalProduced)
	fmt.Fprintf(w, "Dead\t%d\n", stats.TotalDead)
	fmt.Fprintf(w, "Discarded\t%d\n", stats.TotalDiscarded)
	fmt.Fprintf(w, "Distributed\t%d\n", stats.TotalDistributed)
	fmt.Fprintf(w, "In nursery\t%d\n", stats.TotalInNursery)
	fmt.Fprintf(w, "Survival rate\t%.2f%%\n", stats.SurvivalRate)
	return w.Flush()
}

func (a *app) export(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	path, err := a.dash.ExportCSV(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("export written to %s\n", path)
	return nil
}

func (a *app) controller(args []string) (*records.Controller, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: nursery list <entity>")
	}
	entity, ok := records.ByName(args[0])
	if !ok {
		return nil, unknownEntity(args[0])
	}
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return records.NewController(entity, a.client, promptConfirm, a.logger), nil
}

func unknownEntity(name string) error {
	return fmt.Errorf("unknown entity %q, run `nursery help` for the list", name)
}

func (a *app) requireAuth() error {
	if !a.manager.Authenticated() {
		return errors.New("not logged in, run `nursery login` first")
	}
	return nil
}

func promptConfirm(id string) bool {
	fmt.Printf("delete record %s? [y/N]: ", id)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// userMessage keeps validation messages verbatim and runs everything else
// through the API error extractor.
func userMessage(err error) string {
	var validation *records.ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

func usage() {
	names := make([]string, len(records.Entities))
	for i, e := range records.Entities {
		names[i] = e.Name
	}

	fmt.Printf(`nursery - seedling tracking client

Usage:
  nursery login -username <u> -password <p>
  nursery register -username <u> -password <p>
  nursery logout
  nursery whoami
  nursery list <entity>
  nursery add <entity> [-<field> <value> ...]
  nursery delete [-yes] <entity> <id>
  nursery stats
  nursery export

Entities: %s
`, strings.Join(names, ", "))
}
