// Command ticketd drives the merklepass ticket core from the command
// line: initialize a tree, issue tickets, redeem them, and inspect the
// published snapshot. State lives in two files under the data directory:
// snapshot.json (the public commitment record) and tickets.cbor (the
// issuer's private record store).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/pflag"

	"github.com/merklepass/merklepass/core/types"
	"github.com/merklepass/merklepass/log"
	"github.com/merklepass/merklepass/store"
	"github.com/merklepass/merklepass/ticket"
)

const (
	snapshotFile = "snapshot.json"
	recordsFile  = "tickets.cbor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("ticketd", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML config file")
	dataDir := flags.String("datadir", "", "data directory (overrides config)")
	depth := flags.Int("depth", 0, "tree depth for init (overrides config)")
	maxAgeMs := flags.Int64("max-age-ms", -1, "validity window for init (overrides config)")
	logLevel := flags.String("log-level", "", "debug, info, warn, or error")
	logFormat := flags.String("log-format", "", "text or json")
	count := flags.Int("count", 1, "number of tickets to issue")
	secretHex := flags.String("secret", "", "ticket secret (hex) for redeem")
	issuedAt := flags.Int64("issued-at", 0, "ticket issuance time in ms for redeem")
	byLeaf := flags.Bool("by-leaf", false, "redeem by leaf membership instead of Merkle proof")

	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ticketd [flags] init|issue|redeem|snapshot")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ticketd:", err)
		return 1
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *depth != 0 {
		cfg.Depth = *depth
	}
	if *maxAgeMs >= 0 {
		cfg.MaxAgeMs = *maxAgeMs
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "ticketd:", err)
		return 1
	}

	log.SetDefault(log.New(os.Stderr, log.ParseLevel(cfg.Log.Level), cfg.Log.Format))
	logger := log.Default().Module("ticketd")

	var cmdErr error
	switch cmd := flags.Arg(0); cmd {
	case "init":
		cmdErr = cmdInit(cfg)
	case "issue":
		cmdErr = cmdIssue(cfg, *count)
	case "redeem":
		cmdErr = cmdRedeem(cfg, *secretHex, *issuedAt, *byLeaf)
	case "snapshot":
		cmdErr = cmdSnapshot(cfg)
	default:
		fmt.Fprintf(os.Stderr, "ticketd: unknown command %q\n", cmd)
		flags.Usage()
		return 2
	}
	if cmdErr != nil {
		logger.Error("command failed", "err", cmdErr)
		return 1
	}
	return 0
}

func stores(cfg Config) (*store.SnapshotStore, *store.RecordStore) {
	return store.NewSnapshotStore(filepath.Join(cfg.DataDir, snapshotFile)),
		store.NewRecordStore(filepath.Join(cfg.DataDir, recordsFile))
}

// loadService restores the service from the persisted snapshot and
// record store (load-before discipline).
func loadService(cfg Config) (*ticket.Service, error) {
	snapStore, recStore := stores(cfg)
	snap, err := snapStore.Load()
	if err != nil {
		return nil, err
	}
	records, err := recStore.Load()
	if err != nil {
		return nil, err
	}
	return ticket.Restore(snap, records)
}

// saveService persists both state files (save-after discipline).
func saveService(cfg Config, svc *ticket.Service) error {
	snapStore, recStore := stores(cfg)
	if err := recStore.Save(svc.Records()); err != nil {
		return err
	}
	return snapStore.Save(svc.Snapshot())
}

func cmdInit(cfg Config) error {
	snapStore, _ := stores(cfg)
	if snapStore.Exists() {
		return fmt.Errorf("%s already exists, refusing to reinitialize", snapStore.Path())
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	svc, err := ticket.Initialize(cfg.Depth, cfg.MaxAgeMs)
	if err != nil {
		return err
	}
	if err := saveService(cfg, svc); err != nil {
		return err
	}
	snap := svc.Snapshot()
	log.Info("initialized", "depth", snap.Depth, "maxAgeMs", snap.MaxAgeMs, "root", snap.Root)
	return nil
}

func cmdIssue(cfg Config, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	svc, err := loadService(cfg)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		rec, snap, err := svc.Issue()
		if err != nil {
			return err
		}
		fmt.Printf("index=%d secret=%s issuedAt=%d root=%s\n",
			rec.Index, hexutil.Encode(rec.Secret), rec.IssuedAt, snap.Root)
	}
	return saveService(cfg, svc)
}

func cmdRedeem(cfg Config, secretHex string, issuedAtMs int64, byLeaf bool) error {
	if secretHex == "" {
		return fmt.Errorf("redeem requires --secret")
	}
	secret, err := hexutil.Decode(secretHex)
	if err != nil {
		return fmt.Errorf("invalid --secret: %w", err)
	}
	svc, err := loadService(cfg)
	if err != nil {
		return err
	}

	var (
		nullifier types.Hash
		snap      types.StateSnapshot
	)
	if byLeaf {
		nullifier, snap, err = svc.RedeemByLeaf(secret, issuedAtMs)
	} else {
		// Proof-carrying mode. The holder's proof would normally arrive
		// with the claim; the CLI regenerates it from the local store.
		rec, ok := svc.RecordFor(secret, issuedAtMs)
		if !ok {
			fmt.Printf("rejected reason=%s\n", ticket.RejectNotFound)
			return nil
		}
		proof, perr := svc.ProofFor(rec)
		if perr != nil {
			return perr
		}
		nullifier, snap, err = svc.Redeem(secret, issuedAtMs, proof)
	}
	if reason := ticket.RejectionReason(err); reason != ticket.RejectNone {
		fmt.Printf("rejected reason=%s\n", reason)
		return nil
	}
	if err != nil {
		return err
	}
	if err := saveService(cfg, svc); err != nil {
		return err
	}
	fmt.Printf("redeemed nullifier=%s spent=%d\n", nullifier, len(snap.Nullifiers))
	return nil
}

func cmdSnapshot(cfg Config) error {
	snapStore, _ := stores(cfg)
	snap, err := snapStore.Load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
