package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gookit/color"

	"tweeter/internal/config"
	"tweeter/internal/logging"
	"tweeter/internal/storage"
)

const adminDoc = `Tweeter administration tool

Usage:
  tweeter-admin [-config <file>] initdb
  tweeter-admin [-config <file>] -i
  tweeter-admin -h
Options:
  -h              Show this screen.
  -i              Dump all tweets and authors to STDOUT.
  -config <file>  Read settings from a YAML file.`

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	dump := flag.Bool("i", false, "dump all tweets and authors")
	flag.Usage = func() { fmt.Println(adminDoc) }
	flag.Parse()

	if !*dump && flag.Arg(0) != "initdb" {
		fmt.Println(adminDoc)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("Can't load config", err)
	}
	logging.InitLogger(cfg.Log.Level, nil)

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		fail("Can't open database", err)
	}

	if *dump {
		err = dumpTweets(ctx, store, os.Stdout)
	} else {
		err = store.InitSchema(ctx)
	}
	store.Close()
	if err != nil {
		fail("SQL error", err)
	}
	if !*dump {
		fmt.Fprintln(os.Stderr, color.FgGreen.Render("Initialized the database."))
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", color.FgRed.Render(what), err)
	os.Exit(1)
}

// dumpTweets writes tweet_id,author_id,username,message rows as CSV.
func dumpTweets(ctx context.Context, store *storage.Store, out io.Writer) error {
	conn, err := store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	recs, err := conn.Query(ctx, `
		SELECT tweet.tweet_id, tweet.author_id, "user".username, tweet.message
		FROM tweet JOIN "user" ON tweet.author_id = "user".user_id
		ORDER BY tweet.tweet_id`)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	for _, rec := range recs {
		err := w.Write([]string{
			strconv.FormatInt(rec.Int64("tweet_id"), 10),
			strconv.FormatInt(rec.Int64("author_id"), 10),
			rec.String("username"),
			rec.String("message"),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
