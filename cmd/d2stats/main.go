package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"d2stats/internal/config"
	"d2stats/internal/pipeline"
	"d2stats/internal/storage"
	"d2stats/internal/util"
	"d2stats/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(util.SetLogLevel(cfg.LogLevel))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	processor, err := pipeline.NewProcessingService(db, cfg)
	must(err)

	cmd := os.Args[1]
	switch cmd {
	case "feeds:sync":
		res, err := processor.Sync().Sync(ctx)
		must(err)
		fmt.Printf("feeds synced version=%s changed=%v\n", res.ItemVersion, res.Changed)
	case "feeds:watch":
		svc := watcher.NewService(cfg, processor.Sync(), processor, db)
		must(svc.Run(ctx))
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		offline := fs.Bool("offline", false, "use stored snapshots instead of fetching")
		keepUseless := fs.Bool("keep-useless", false, "keep items without a recognized bonus")
		out := fs.String("out", "", "output xlsx path")
		open := fs.Bool("open", false, "open the workbook after export")
		itemsFile := fs.String("items-file", "", "local item feed")
		namesFile := fs.String("names-file", "", "local display-name feed")
		heroesFile := fs.String("heroes-file", "", "local hero feed")
		_ = fs.Parse(os.Args[2:])

		res, err := processor.Run(ctx, pipeline.RunOptions{
			Offline:     *offline,
			KeepUseless: *keepUseless,
			Output:      *out,
			Open:        *open,
			Files:       pipeline.DocumentFiles{Items: *itemsFile, Names: *namesFile, Heroes: *heroesFile},
		})
		must(err)
		fmt.Printf("run done id=%d version=%s items=%d heroes=%d output=%s\n", res.RunID, res.ItemVersion, res.Items, res.Heroes, res.OutputPath)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.Int("run", 0, "stored run id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *runID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--run and --out are required"))
		}
		must(processor.ExportRun(*runID, *out))
		fmt.Printf("exported run %d to %s\n", *runID, *out)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%d\t%s\tversion=%s\titems=%d\theroes=%d\t%s\n", r.ID, r.CreatedAt, r.ItemVersion, r.ItemCount, r.HeroCount, r.OutputPath)
		}
	case "categories:scrape":
		categories, err := processor.Sync().Client().ScrapeItemCategories(ctx)
		must(err)
		must(db.ReplaceItemCategories(categories))
		fmt.Printf("stored %d item categories\n", len(categories))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: d2stats <command>")
	fmt.Println("commands:")
	fmt.Println("  feeds:sync")
	fmt.Println("  feeds:watch")
	fmt.Println("  run [--offline] [--keep-useless] [--out=...xlsx] [--open] [--items-file=... --names-file=... --heroes-file=...]")
	fmt.Println("  export:xlsx --run=1 --out=./out/Dota2Data.xlsx")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  categories:scrape")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
