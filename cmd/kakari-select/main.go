package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cognicore/kakari/internal/corpus"
	"github.com/cognicore/kakari/pkg/kakari"
	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/config"
	"github.com/cognicore/kakari/pkg/kakari/store"
	"github.com/cognicore/kakari/pkg/kakari/store/sqlite"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

func main() {
	var (
		inputPath    = flag.String("input", "", "Input file (required)")
		format       = flag.String("format", "jsonl", "Input format: jsonl or lattice")
		configPath   = flag.String("config", "", "Config file (optional)")
		patternsPath = flag.String("patterns", "", "Pattern table file (optional)")
		dbPath       = flag.String("db", "", "SQLite database for feature records (optional)")
		normalize    = flag.Bool("normalize", false, "Fold half-width surfaces to full width")
		top          = flag.Int("top", 0, "Log the N most frequent stored features (requires --db)")
		topPrefix    = flag.String("top-prefix", "", "Only report features starting with this prefix")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("--input required")
	}

	ctx := context.Background()

	loader := config.Loader{
		ConfigPath:   *configPath,
		PatternsPath: *patternsPath,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var st store.Store
	if *dbPath != "" {
		st, err = sqlite.OpenSQLite(ctx, *dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
	}

	k := kakari.New(kakari.Options{
		Selector: components.Selector,
		Store:    st,
	})
	defer k.Close()

	if *normalize && *format == "lattice" && components.Charset != charset.UTF8 {
		log.Printf("Warning: --normalize ignored for %s lattice input", components.Charset)
	}

	trees, err := readInput(*inputPath, *format, corpus.Options{
		PosSet:           components.PosSet,
		Charset:          components.Charset,
		NormalizeSurface: *normalize,
	})
	if err != nil {
		log.Fatalf("Failed to load sentences: %v", err)
	}
	log.Printf("Loaded %d sentences from %s", len(trees), *inputPath)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	processed := 0
	for i, t := range trees {
		rec, err := k.Process(ctx, t)
		if err != nil {
			log.Printf("Failed to process sentence %d: %v", i, err)
			continue
		}
		writeRecord(out, rec)
		processed++
	}

	log.Printf("Selection complete: %d/%d sentences processed", processed, len(trees))

	if *top > 0 && st != nil {
		counts, err := st.TopFeatures(ctx, *topPrefix, *top)
		if err != nil {
			log.Fatalf("Failed to read feature counts: %v", err)
		}
		for _, fc := range counts {
			log.Printf("%-8s %6d  %s", store.FeatureName(fc.Feature), fc.Count, fc.Feature)
		}
	}
}

func readInput(path, format string, opts corpus.Options) ([]*tree.Tree, error) {
	switch format {
	case "jsonl":
		return corpus.LoadFromJSONL(path, opts)
	case "lattice":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return corpus.ReadLattice(f, opts)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeRecord(w *bufio.Writer, rec store.Record) {
	for _, c := range rec.Chunks {
		fmt.Fprintf(w, "%d %d %d", c.Index, c.HeadPos, c.FuncPos)
		if len(c.Features) > 0 {
			w.WriteString(" ")
			w.WriteString(strings.Join(c.Features, " "))
		}
		w.WriteString("\n")
	}
	w.WriteString("EOS\n")
}
