package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"indexbench/pkg/bench"
	"indexbench/pkg/config"
	"indexbench/pkg/report"
	"indexbench/pkg/storage"
	"indexbench/pkg/storage/keyfile"
)

var summaryOps = []string{bench.OpSearch, bench.OpRange, bench.OpInsert, bench.OpDelete, bench.OpBuild, bench.OpMemory}

func main() {
	configPath := flag.String("config", "", "YAML config file (default: configs/indexbench.yaml if present)")
	keysPath := flag.String("keys", "", "benchmark a key file instead of generated distributions")
	writeKeys := flag.String("write-keys", "", "write the generated key sets to this directory and exit")
	verify := flag.Bool("verify", false, "check every result against the google/btree reference")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *keysPath != "" {
		cfg.Bench.KeysFile = *keysPath
	}
	if *verify {
		cfg.Bench.Verify = true
	}

	if *writeKeys != "" {
		if err := dumpKeys(cfg, *writeKeys); err != nil {
			log.Fatalf("Failed to write keys: %v", err)
		}
		return
	}

	mem := &storage.MemorySink{}
	sink, err := openSinks(cfg, mem)
	if err != nil {
		log.Fatalf("Failed to open result sinks: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("indexbench: sizes=%v distributions=%v verify=%v\n", cfg.Bench.Sizes, cfg.Bench.Distributions, cfg.Bench.Verify)
	fmt.Println("---------------------------------------------------")

	runner := bench.NewRunner(cfg, sink)
	start := time.Now()
	runErr := runner.Run(ctx)
	if err := sink.Close(); err != nil {
		log.Printf("[Storage] close: %v", err)
	}

	printSummary(mem.Results)
	fmt.Println("---------------------------------------------------")
	fmt.Printf("Finished in %v | %s\n", time.Since(start).Round(time.Millisecond), runner.Stats())

	if cfg.Output.PlotPath != "" {
		writePlots(mem.Results, cfg.Output.PlotPath)
	}
	if runErr != nil {
		log.Fatalf("Benchmark failed: %v", runErr)
	}
}

func openSinks(cfg *config.Config, mem *storage.MemorySink) (storage.Sink, error) {
	sinks := storage.MultiSink{mem}
	if cfg.Output.CSVPath != "" {
		csv, err := storage.NewCSVSink(cfg.Output.CSVPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csv)
	}
	if cfg.Output.SQLitePath != "" {
		db, err := storage.NewSQLiteSink(cfg.Output.SQLitePath)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, db)
	}
	return sinks, nil
}

func dumpKeys(cfg *config.Config, dir string) error {
	datasets, err := bench.NewRunner(cfg, &storage.MemorySink{}).Datasets()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, ds := range datasets {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.keys", ds.Distribution, ds.Size))
		if err := keyfile.Write(path, ds.Keys); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d keys)\n", path, len(ds.Keys))
	}
	return nil
}

// printSummary 每个操作一张表，每个数据集上最快（最小）的结构高亮显示
func printSummary(results []storage.Result) {
	header := color.New(color.FgCyan, color.Bold)
	winner := color.New(color.FgGreen, color.Bold)

	for _, op := range summaryOps {
		t := report.Collect(results, op)
		if len(t.Indexes) == 0 {
			continue
		}
		best := t.Best()

		fmt.Println()
		header.Printf("%-16s", op)
		for _, idx := range t.Indexes {
			header.Printf("%16s", idx)
		}
		fmt.Println()

		for _, ds := range t.Datasets {
			fmt.Printf("%-16s", ds)
			for _, idx := range t.Indexes {
				v, ok := t.Values[idx][ds]
				switch {
				case !ok:
					fmt.Printf("%16s", "-")
				case best[ds] == idx:
					winner.Printf("%16.1f", v)
				default:
					fmt.Printf("%16.1f", v)
				}
			}
			fmt.Println()
		}
	}
}

func writePlots(results []storage.Result, dir string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("[Bench] plot dir: %v", err)
		return
	}
	for _, op := range summaryOps {
		t := report.Collect(results, op)
		if len(t.Indexes) == 0 {
			continue
		}
		path := filepath.Join(dir, op+".png")
		if err := report.Plot(t, path); err != nil {
			log.Printf("[Bench] %v", err)
			continue
		}
		fmt.Printf("plot: %s\n", path)
	}
}
