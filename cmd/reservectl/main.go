// Command reservectl boots a reserve registry from a TOML config file and
// either serves it over HTTP/Prometheus or drives a one-shot synthetic
// scenario (supply, borrow, tick) and prints the resulting reserve
// snapshot as JSON, in the idiom of the teacher's subcommand-dispatched
// CLIs. ReserveDataUpdated observations are logged at debug level.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reservecore/config"
	"reservecore/internal/reserve"
	"reservecore/observability"
	"reservecore/observability/logging"
	"reservecore/reservehost"
	"reservecore/reservesim"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "demo":
		runDemo(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: reservectl <serve|demo> [flags]")
}

// collaborators bundles the in-memory fakes wired into a registry so
// callers driving a synthetic scenario can mutate them directly.
type collaborators struct {
	stableDebt   *reservesim.StableDebtBook
	variableDebt *reservesim.VariableDebtBook
	assetLedger  *reservesim.AssetLedger
}

func newRegistry(cfg *config.Config, logger *slog.Logger) (*reservehost.Registry, *collaborators, error) {
	fakes := &collaborators{
		stableDebt:   reservesim.NewStableDebtBook(),
		variableDebt: reservesim.NewVariableDebtBook(),
		assetLedger:  reservesim.NewAssetLedger(),
	}

	logic := &reserve.Logic{
		StableDebt:    fakes.stableDebt,
		VariableDebt:  fakes.variableDebt,
		AssetBalance:  fakes.assetLedger,
		ReserveConfig: reservesim.StaticReserveConfig{},
	}

	registry := reservehost.New(logic, logger, observability.Reserve())

	for name, curve := range cfg.Reserves {
		params, err := curve.ToParameters()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid rate curve for reserve %q: %w", name, err)
		}
		aToken := name + "-aToken"
		if err := registry.Register(name, aToken, name+"-stableDebt", name+"-variableDebt", name+"-strategy", params); err != nil {
			return nil, nil, fmt.Errorf("failed to register reserve %q: %w", name, err)
		}
	}

	return registry, fakes, nil
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "./reservectl.toml", "Path to the configuration file")
	fs.Parse(args)

	logger := logging.Setup("reservectl", os.Getenv("RESERVECTL_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	registry, _, err := newRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build registry", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/tick", tickHandler(registry))
	mux.HandleFunc("/snapshot", snapshotHandler(registry))

	logger.Info("reservectl listening", "address", cfg.ListenAddress)
	if err := http.ListenAndServe(cfg.ListenAddress, mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// runDemo feeds one reserve a synthetic supply, borrow, and tick sequence
// and prints the resulting snapshot. It exists to let a reviewer exercise
// the core end to end without writing Go, per the scenarios spec.md §8
// describes.
func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configFile := fs.String("config", "./reservectl.toml", "Path to the configuration file")
	reserveName := fs.String("reserve", "default", "Reserve name to drive (must exist in the config's Reserves table)")
	supplyAmount := fs.String("supply", "1000000000000000000000", "Wad amount of liquidity supplied to the aToken before the first tick")
	borrowAmount := fs.String("borrow", "400000000000000000000", "Wad amount of scaled variable debt set after the first tick")
	elapsedSeconds := fs.Uint64("elapsed", 31_536_000, "Seconds to advance before the final tick")
	fs.Parse(args)

	logger := logging.Setup("reservectl", os.Getenv("RESERVECTL_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if _, ok := cfg.Reserves[*reserveName]; !ok {
		logger.Error("unknown reserve in config", "reserve", *reserveName)
		os.Exit(1)
	}

	registry, fakes, err := newRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build registry", "error", err)
		os.Exit(1)
	}
	aToken := *reserveName + "-aToken"

	supplied, ok := new(big.Int).SetString(*supplyAmount, 10)
	if !ok {
		logger.Error("invalid supply amount", "value", *supplyAmount)
		os.Exit(1)
	}
	borrowed, ok := new(big.Int).SetString(*borrowAmount, 10)
	if !ok {
		logger.Error("invalid borrow amount", "value", *borrowAmount)
		os.Exit(1)
	}

	logger.Info("demo: supply", "reserve", *reserveName, "amount", supplied.String())
	fakes.assetLedger.Credit(aToken, supplied)

	start := uint64(time.Now().Unix())
	if err := registry.Tick(*reserveName, start, big.NewInt(0), big.NewInt(0)); err != nil {
		logger.Error("demo: initial tick failed", "error", err)
		os.Exit(1)
	}

	logger.Info("demo: borrow", "reserve", *reserveName, "scaled_amount", borrowed.String())
	fakes.variableDebt.Set(*reserveName, borrowed)
	if err := registry.Tick(*reserveName, start, big.NewInt(0), big.NewInt(0)); err != nil {
		logger.Error("demo: post-borrow tick failed", "error", err)
		os.Exit(1)
	}

	later := start + *elapsedSeconds
	logger.Info("demo: advancing time", "seconds", *elapsedSeconds)
	if err := registry.Tick(*reserveName, later, big.NewInt(0), big.NewInt(0)); err != nil {
		logger.Error("demo: final tick failed", "error", err)
		os.Exit(1)
	}

	snapshot, err := registry.Snapshot(*reserveName)
	if err != nil {
		logger.Error("demo: snapshot failed", "error", err)
		os.Exit(1)
	}
	printSnapshot(snapshot)
}

func printSnapshot(data *reserve.ReserveData) {
	_ = json.NewEncoder(os.Stdout).Encode(snapshotView(data))
}

type snapshotPayload struct {
	LiquidityIndex      string `json:"liquidityIndex"`
	VariableBorrowIndex string `json:"variableBorrowIndex"`
	LiquidityRate       string `json:"liquidityRate"`
	StableBorrowRate    string `json:"stableBorrowRate"`
	VariableBorrowRate  string `json:"variableBorrowRate"`
	AccruedToTreasury   string `json:"accruedToTreasury"`
	LastUpdateTimestamp uint64 `json:"lastUpdateTimestamp"`
}

func snapshotView(data *reserve.ReserveData) snapshotPayload {
	return snapshotPayload{
		LiquidityIndex:      data.LiquidityIndex.String(),
		VariableBorrowIndex: data.VariableBorrowIndex.String(),
		LiquidityRate:       data.CurrentLiquidityRate.String(),
		StableBorrowRate:    data.CurrentStableBorrowRate.String(),
		VariableBorrowRate:  data.CurrentVariableBorrowRate.String(),
		AccruedToTreasury:   data.AccruedToTreasury.String(),
		LastUpdateTimestamp: data.LastUpdateTimestamp,
	}
}

func tickHandler(registry *reservehost.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reserveAddress := r.URL.Query().Get("reserve")
		if reserveAddress == "" {
			http.Error(w, "missing reserve query parameter", http.StatusBadRequest)
			return
		}
		now, err := parseUintOrNow(r.URL.Query().Get("now"))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid now: %v", err), http.StatusBadRequest)
			return
		}
		if err := registry.Tick(reserveAddress, now, big.NewInt(0), big.NewInt(0)); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func snapshotHandler(registry *reservehost.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reserveAddress := r.URL.Query().Get("reserve")
		if reserveAddress == "" {
			http.Error(w, "missing reserve query parameter", http.StatusBadRequest)
			return
		}
		data, err := registry.Snapshot(reserveAddress)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshotView(data))
	}
}

func parseUintOrNow(raw string) (uint64, error) {
	if raw == "" {
		return uint64(time.Now().Unix()), nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
