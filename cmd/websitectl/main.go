// websitectl is the admin companion to the website service: user
// management plus full-database backup and restore.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/config"
	"github.com/michaelsproul/website/internal/server"
	"github.com/michaelsproul/website/internal/snapshot"
	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/internal/users"
)

const usage = `usage: websitectl [flags] <command> [args]

commands:
  create-user <username> <password>   create a new user (-admin for an administrator)
  list-users                          list all users (-format plain-text|json)
  dump                                write a database snapshot to stdout (or -out)
  load <file>                         restore a database snapshot
  init-db                             create tables and indexes (postgres)
`

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	admin := flag.Bool("admin", false, "create-user: make the new user an admin")
	format := flag.String("format", "plain-text", "list-users: output format [plain-text | json]")
	out := flag.String("out", "", "dump: output file (default stdout)")
	verbose := flag.Bool("v", false, "enable verbose output")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx := context.Background()
	ds, err := server.NewDataStore(ctx, cfg)
	if err != nil {
		log.Fatalf("connect to store: %s", err)
	}
	defer func() {
		if err := ds.Close(ctx); err != nil {
			log.Errorf("close store: %s", err)
		}
	}()

	if err := execute(ctx, ds, flag.Args(), *admin, *format, *out); err != nil {
		log.Fatalf("%s: %s", flag.Arg(0), err)
	}
}

func execute(ctx context.Context, ds store.DataStore, args []string, admin bool, format, out string) error {
	switch cmd := args[0]; cmd {
	case "create-user":
		if len(args) != 3 {
			return fmt.Errorf("expected <username> <password>")
		}
		return createUser(ctx, ds, args[1], args[2], admin)
	case "list-users":
		return listUsers(ctx, ds, format)
	case "dump":
		return dump(ctx, ds, out)
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("expected <file>")
		}
		return load(ctx, ds, args[1])
	case "init-db":
		return initDB(ctx, ds)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func createUser(ctx context.Context, ds store.DataStore, username, password string, admin bool) error {
	user, err := users.NewService(ds).CreateUser(ctx, username, password, admin)
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (%s)\n", user.Name, user.UUID)
	return nil
}

func listUsers(ctx context.Context, ds store.DataStore, format string) error {
	all, err := users.NewService(ds).ListUsers(ctx)
	if err != nil {
		return err
	}

	switch format {
	case "json", "j":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(all)
	case "plain-text", "plaintext", "plain", "p":
		fmt.Println("Users")
		fmt.Println("-----")
		fmt.Println()
		for _, user := range all {
			if user.Admin {
				fmt.Printf("%s (admin)\n", user.Name)
			} else {
				fmt.Println(user.Name)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func dump(ctx context.Context, ds store.DataStore, out string) error {
	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Errorf("close %s: %s", out, err)
			}
		}()
		w = f
	}
	return snapshot.Dump(ctx, ds, w)
}

func load(ctx context.Context, ds store.DataStore, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return snapshot.Load(ctx, ds, data)
}

func initDB(ctx context.Context, ds store.DataStore) error {
	pg, ok := ds.(*store.PostgresStore)
	if !ok {
		return fmt.Errorf("init-db only applies to the postgres backend")
	}
	return pg.InitSchema(ctx)
}
