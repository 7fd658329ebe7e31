// Command cnftree drives the off-chain mirror of one compressed-token tree
// from the command line. Engine state lives in a JSON snapshot file that
// every mutating command reads, updates and writes back.
//
// Usage:
//
//	cnftree [flags] <command> [args]
//
// Commands:
//
//	create                                    create the on-chain tree
//	mint <recipient-pubkey>                   mint a leaf to the recipient
//	transfer <index> <current-owner-key> <new-owner-pubkey> <data-hash> <creator-hash>
//	                                          move a leaf to a new owner
//	proof <index>                             print the sibling path for a leaf
//	show                                      print the engine state
//
// Flags:
//
//	--config   config file path (default: cnftree.yaml, optional)
//	--state    snapshot file path (default: cnftree-state.json)
//	--key      tree owner private key, base58 (or CNFTREE_OWNER_KEY)
//	--version  print version and exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/cnftree/cnftree/config"
	"github.com/cnftree/cnftree/log"
	"github.com/cnftree/cnftree/rpc"
	"github.com/cnftree/cnftree/tree"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0"
var version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the entry point proper, returning an exit code. It takes the CLI
// arguments without the program name so it can be tested in isolation.
func run(args []string) int {
	fs := flag.NewFlagSet("cnftree", flag.ContinueOnError)
	configPath := fs.String("config", "cnftree.yaml", "config file path")
	statePath := fs.String("state", "cnftree-state.json", "snapshot file path")
	ownerKey := fs.String("key", os.Getenv("CNFTREE_OWNER_KEY"), "tree owner private key, base58")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Printf("cnftree %s\n", version)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: cnftree [flags] <command> [args]")
		fs.PrintDefaults()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		// a missing config file means defaults, anything else is fatal
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		cfg = config.Default()
	}
	logger := log.New(log.ParseLevel(cfg.LogLevel))
	client := rpc.New(cfg, logger)

	m, err := loadState(*statePath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "create":
		next, sig, err := m.CreateTree(ctx, client, *ownerKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		account, _ := next.TreeAccount()
		fmt.Printf("tree %s created, signature %s\n", account, sig)
		return saveState(*statePath, next)

	case "mint":
		if len(cmdArgs) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: cnftree mint <recipient-pubkey>")
			return 2
		}
		next, sig, err := m.Mint(ctx, client, *ownerKey, cmdArgs[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("leaf %d minted, signature %s\n", next.Minted()-1, sig)
		return saveState(*statePath, next)

	case "transfer":
		if len(cmdArgs) != 5 {
			fmt.Fprintln(os.Stderr, "Usage: cnftree transfer <index> <current-owner-key> <new-owner-pubkey> <data-hash> <creator-hash>")
			return 2
		}
		index, err := strconv.ParseUint(cmdArgs[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid index %q\n", cmdArgs[0])
			return 2
		}
		next, sig, err := m.Transfer(ctx, client, *ownerKey,
			cmdArgs[1], cmdArgs[2], index, cmdArgs[3], cmdArgs[4])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("leaf %d transferred, signature %s\n", index, sig)
		return saveState(*statePath, next)

	case "proof":
		if len(cmdArgs) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: cnftree proof <index>")
			return 2
		}
		index, err := strconv.ParseUint(cmdArgs[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid index %q\n", cmdArgs[0])
			return 2
		}
		proof, err := m.Proof(index)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		for _, node := range proof {
			fmt.Println(node)
		}
		return 0

	case "show":
		root, err := m.Root()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("depth:   %d\n", m.MaxDepth())
		fmt.Printf("buffer:  %d\n", m.MaxBufferSize())
		fmt.Printf("minted:  %d / %d\n", m.Minted(), m.Capacity())
		fmt.Printf("root:    %s\n", root)
		if account, ok := m.TreeAccount(); ok {
			fmt.Printf("account: %s\n", account)
		} else {
			fmt.Println("account: (not created)")
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		return 2
	}
}

// loadState restores the engine from the snapshot file, or starts a fresh
// engine when no snapshot exists yet.
func loadState(path string, logger *log.Logger) (*tree.Manager, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tree.Init(logger), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	var snap tree.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return tree.FromSnapshot(snap, logger)
}

// saveState writes the snapshot back, returning a process exit code.
func saveState(path string, m *tree.Manager) int {
	raw, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode state: %v\n", err)
		return 1
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write state %s: %v\n", path, err)
		return 1
	}
	return 0
}
