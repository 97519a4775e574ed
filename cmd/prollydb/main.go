// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"prollydb/config"
	"prollydb/database"
	"prollydb/output"
	"prollydb/schema"
	"prollydb/store"
	"prollydb/store/cache"
	_ "prollydb/store/memstore"
	_ "prollydb/store/sqlstore"
)

type globalFlags struct {
	configFile string
	format     string
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "prollydb",
		Short: "Content-addressed, immutable relational store",
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to prollydb.toml (defaults to an in-memory store)")
	rootCmd.PersistentFlags().StringVarP(&flags.format, "format", "f", "", "Output format: table, json, or summary")

	rootCmd.AddCommand(createCmd(flags))
	rootCmd.AddCommand(sqlCmd(flags))
	rootCmd.AddCommand(replCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads flags.configFile, or falls back to config.Default() when
// none was given, mirroring the teacher's "flags override nothing, file
// supplies everything" convention for its own dsn/file flags.
func loadConfig(flags *globalFlags) (config.Config, error) {
	if flags.configFile == "" {
		return config.Default(), nil
	}
	return config.Load(flags.configFile)
}

func openStore(flags *globalFlags) (store.BlockStore, config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	bs, err := store.Open(cfg.Store.Backend, cfg.Store.DSN)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to open store: %w", err)
	}

	// Remote backends (mysql) benefit from an LRU of recently touched
	// blocks; the in-memory backend is already as fast as the cache itself.
	if cfg.Store.Backend != "memory" {
		cached, err := cache.New(bs, cfg.Store.CacheSize)
		if err != nil {
			return nil, config.Config{}, fmt.Errorf("failed to wrap store in cache: %w", err)
		}
		bs = cached
	}
	return bs, cfg, nil
}

func createCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an empty database and print its root CID",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCreate(flags)
		},
	}
}

func runCreate(flags *globalFlags) error {
	ctx := context.Background()
	bs, _, err := openStore(flags)
	if err != nil {
		return err
	}

	root, err := database.Persist(ctx, bs, database.Create())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	fmt.Println(root.String())
	return nil
}

func sqlCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <root-cid> <statement>",
		Short: "Run one SQL statement against a database rooted at <root-cid>",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSQL(flags, args[0], args[1])
		},
	}
}

func runSQL(flags *globalFlags, rootArg, statement string) error {
	ctx := context.Background()
	bs, cfg, err := openStore(flags)
	if err != nil {
		return err
	}

	db, _, err := loadDatabase(ctx, bs, rootArg)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(flags.format)
	if err != nil {
		return err
	}

	newRoot, rendered, err := execute(ctx, bs, db, cfg, statement, formatter)
	if err != nil {
		return err
	}
	if rendered != "" {
		fmt.Println(rendered)
	}
	if newRoot.Defined() {
		fmt.Println(newRoot.String())
	}
	return nil
}

// loadDatabase resolves rootArg ("" meaning "fresh, empty database") to a
// Database, mirroring the teacher's openSchemaFiles "both inputs optional
// in shape, required in meaning" pattern.
func loadDatabase(ctx context.Context, bs store.BlockStore, rootArg string) (database.Database, cid.Cid, error) {
	if rootArg == "" || rootArg == "-" {
		return database.Create(), cid.Undef, nil
	}
	root, err := cid.Decode(rootArg)
	if err != nil {
		return database.Database{}, cid.Undef, fmt.Errorf("invalid root cid %q: %w", rootArg, err)
	}
	db, err := database.From(ctx, bs, root)
	if err != nil {
		return database.Database{}, cid.Undef, fmt.Errorf("failed to load database: %w", err)
	}
	return db, root, nil
}

// execute runs one statement against db and, for a mutation, persists every
// resulting block and reports the new root CID; for a SELECT it renders the
// result with formatter and reports no new root (cid.Undef).
func execute(ctx context.Context, bs store.BlockStore, db database.Database, cfg config.Config, statement string, formatter output.Formatter) (cid.Cid, string, error) {
	res, err := database.SQL(ctx, bs, db, cfg.Splitter(), statement)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("failed to run statement: %w", err)
	}

	if res.Mutation != nil {
		for _, b := range res.Mutation.Blocks {
			if err := bs.Put(ctx, b); err != nil {
				return cid.Undef, "", fmt.Errorf("failed to persist block: %w", err)
			}
		}
		return res.Mutation.Root(), "", nil
	}

	collected, err := collectRows(res)
	if err != nil {
		return cid.Undef, "", err
	}
	rendered, err := formatter.Format(res.Columns, collected)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("failed to format output: %w", err)
	}
	return cid.Undef, rendered, nil
}

func collectRows(res database.Result) ([]schema.Row, error) {
	var rows []schema.Row
	for row, err := range res.Rows {
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func replCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [root-cid]",
		Short: "Read-eval-print loop: one statement per line, printing the new root after each mutation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rootArg := ""
			if len(args) == 1 {
				rootArg = args[0]
			}
			return runRepl(flags, rootArg)
		},
	}
}

func runRepl(flags *globalFlags, rootArg string) error {
	ctx := context.Background()
	bs, cfg, err := openStore(flags)
	if err != nil {
		return err
	}
	formatter, err := output.NewFormatter(flags.format)
	if err != nil {
		return err
	}

	db, root, err := loadDatabase(ctx, bs, rootArg)
	if err != nil {
		return err
	}
	if !root.Defined() {
		root, err = database.Persist(ctx, bs, db)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}
	fmt.Printf("prollydb> root %s\n", root)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("prollydb> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		newRoot, rendered, err := execute(ctx, bs, db, cfg, line, formatter)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if rendered != "" {
			fmt.Println(rendered)
		}
		if newRoot.Defined() {
			root = newRoot
			db, err = database.From(ctx, bs, root)
			if err != nil {
				return fmt.Errorf("failed to reload database: %w", err)
			}
			fmt.Println(root.String())
		}
	}
	return scanner.Err()
}
