// Package main implements cfstool, a small utility for inspecting,
// validating and unpacking .cfs table-store archives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/voightp/esofile-reader-sub000/internal/collection"
	"github.com/voightp/esofile-reader-sub000/internal/config"
	"github.com/voightp/esofile-reader-sub000/internal/frame"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		archivePath string
		workDir     string
		listTables  bool
		showTable   string
		unpackDir   string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&archivePath, "archive", "", "Path to a .cfs archive")
	flag.StringVar(&workDir, "work-dir", "", "Directory to extract archives into (default: temp)")
	flag.BoolVar(&listTables, "list", false, "List tables and their shapes")
	flag.StringVar(&showTable, "table", "", "Print the column identities of one table")
	flag.StringVar(&unpackDir, "unpack", "", "Extract the archive into the given directory")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cfstool - inspect and validate chunked table-store archives\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cfstool -archive store%s [options]\n\n", collection.ArchiveExt)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cfstool -archive results%s -list\n", collection.ArchiveExt)
		fmt.Fprintf(os.Stderr, "  cfstool -archive results%s -table hourly\n", collection.ArchiveExt)
		fmt.Fprintf(os.Stderr, "  cfstool -archive results%s -unpack ./extracted\n", collection.ArchiveExt)
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  CFS_DATA_DIR       Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  CFS_MAX_CHUNK_KB   Chunk byte budget in kilobytes\n")
		fmt.Fprintf(os.Stderr, "  CFS_MAX_COLUMNS    Chunk column cap\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("cfstool version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if archivePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	policy := frame.ChunkingPolicy{
		MaxChunkKB: cfg.Chunking.MaxChunkKB,
		MaxColumns: cfg.Chunking.MaxColumns,
	}

	if unpackDir == "" {
		if workDir == "" {
			tmp, err := os.MkdirTemp("", "cfstool-")
			if err != nil {
				log.Fatalf("Failed to create work directory: %v", err)
			}
			defer os.RemoveAll(tmp)
			workDir = tmp
		}
	} else {
		workDir = unpackDir
	}

	ctx := context.Background()
	c, err := collection.LoadFromArchive(ctx, archivePath, workDir, policy)
	if err != nil {
		log.Fatalf("Failed to load archive %s: %v", archivePath, err)
	}

	meta := c.Meta()
	fmt.Printf("archive: %s\n", filepath.Base(archivePath))
	fmt.Printf("file:    %s (id %d, type %s)\n", meta.Name, meta.ID, meta.FileType)
	fmt.Printf("created: %s\n", meta.Created.Format("2006-01-02 15:04:05"))

	switch {
	case listTables:
		for _, name := range c.Names() {
			f := c.Get(name)
			fmt.Printf("  %-20s %6d rows  %6d columns\n", name, f.RowIndex().Len(), len(f.Variables()))
		}
	case showTable != "":
		f := c.Get(showTable)
		if f == nil {
			log.Fatalf("No table named %q in archive", showTable)
		}
		for _, v := range f.Variables() {
			fmt.Printf("  %s\n", v)
		}
	case unpackDir != "":
		fmt.Printf("extracted %d tables into %s\n", len(c.Names()), unpackDir)
	default:
		fmt.Printf("tables:  %d (use -list for details)\n", len(c.Names()))
	}
}

func loadConfig(configFile string) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
