package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagConfig string
	flagDB     string
	flagOut    string
	flagDryRun bool
	flagFormat string
	flagOutput string
	flagListen string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labgen",
		Short: "IP allocation and IS-IS startup config generator for Kathara labs",
		Long: `labgen reads a declarative lab.conf topology, carves per-segment
address blocks out of a shared pool (point-to-point links get /30,
LAN segments the smallest block that fits), assigns per-interface
addresses and emits FRR IS-IS startup scripts for every device.

Each allocation is archived in a local SQLite database so runs can be
listed, diffed and exported later.`,
		SilenceUsage: true,
	}
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", mustEnv("LABGEN_CONFIG", ""), "YAML run configuration (pool, pins, IS-IS settings)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", mustEnv("LABGEN_DB", "./labgen.sqlite"), "run archive database path")

	generateCmd := &cobra.Command{
		Use:   "generate <lab.conf>",
		Short: "Allocate addresses and write per-device startup scripts",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&flagOut, "out", "", "output directory for startup files (default: lab.conf directory)")
	generateCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "allocate and verify but write nothing")

	planCmd := &cobra.Command{
		Use:   "plan <lab.conf>",
		Short: "Print the allocation table without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	planCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: text, yaml, json, csv")

	checkCmd := &cobra.Command{
		Use:   "check <lab.conf>",
		Short: "Allocate and verify invariants, report conflicts",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived allocation runs",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}

	diffCmd := &cobra.Command{
		Use:   "diff [run-id run-id]",
		Short: "Diff two archived runs (default: the latest two)",
		Args:  cobra.RangeArgs(0, 2),
		RunE:  runDiff,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export an archived run (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&flagFormat, "format", "yaml", "output format: yaml, json, csv, xlsx")
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write to file instead of stdout (required for xlsx)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run archive over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagListen, "listen", mustEnv("LISTEN_ADDR", "0.0.0.0:8080"), "listen address")

	rootCmd.AddCommand(generateCmd, planCmd, checkCmd, runsCmd, diffCmd, exportCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildPlan runs the full pipeline up to routing derivation: parse, allocate,
// annotate. Verification is the caller's call.
func buildPlan(labPath string) (*Topology, *Plan, Config, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, nil, Config{}, err
	}
	matcher, err := cfg.matcher()
	if err != nil {
		return nil, nil, Config{}, err
	}
	topo, err := parseLab(labPath, matcher)
	if err != nil {
		return nil, nil, Config{}, err
	}
	plan, err := allocatePlan(topo, cfg)
	if err != nil {
		return nil, nil, Config{}, err
	}
	deriveRouting(plan, topo, cfg)
	return topo, plan, cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	labPath := args[0]
	topo, plan, cfg, err := buildPlan(labPath)
	if err != nil {
		return err
	}
	if conflicts := verifyPlan(plan, topo, cfg); len(conflicts) > 0 {
		for _, c := range conflicts {
			fmt.Fprintln(os.Stderr, "conflict: "+c.Kind+": "+c.Detail)
		}
		return fmt.Errorf("plan verification failed with %d conflict(s)", len(conflicts))
	}

	if flagDryRun {
		return writePlanText(os.Stdout, bundleFromPlan(plan))
	}

	outDir := flagOut
	if outDir == "" {
		outDir = filepath.Dir(labPath)
	}
	written, err := writeStartupFiles(outDir, topo, plan, cfg)
	if err != nil {
		return err
	}
	for _, path := range written {
		log.Printf("wrote %s", path)
	}

	db, err := openStore(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()
	runID, err := saveRun(db, plan)
	if err != nil {
		return err
	}
	log.Printf("archived run %d (%d devices, %d segments)", runID, len(plan.Devices), len(plan.Blocks))
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, plan, _, err := buildPlan(args[0])
	if err != nil {
		return err
	}
	b := bundleFromPlan(plan)
	switch flagFormat {
	case "text":
		return writePlanText(os.Stdout, b)
	case "yaml":
		return writePlanYAML(os.Stdout, b)
	case "json":
		return writePlanJSON(os.Stdout, b)
	case "csv":
		return writePlanCSV(os.Stdout, b)
	}
	return fmt.Errorf("invalid format %q: must be text, yaml, json or csv", flagFormat)
}

func runCheck(cmd *cobra.Command, args []string) error {
	topo, plan, cfg, err := buildPlan(args[0])
	if err != nil {
		return err
	}
	conflicts := verifyPlan(plan, topo, cfg)
	if len(conflicts) == 0 {
		fmt.Println("ok: no conflicts")
		return nil
	}
	for _, c := range conflicts {
		fmt.Println(c.Kind + ": " + c.Detail)
	}
	return fmt.Errorf("%d conflict(s)", len(conflicts))
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openStore(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()
	runs, err := listRuns(db)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs archived")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%d\t%s\t%s\t%s\tdevices=%d segments=%d\t%s\n",
			r.ID, r.CreatedAt, r.Lab, r.Pool, r.Devices, r.Segments, r.Checksum[:12])
	}
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	db, err := openStore(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()

	var beforeID, afterID int64
	switch len(args) {
	case 2:
		if beforeID, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		if afterID, err = strconv.ParseInt(args[1], 10, 64); err != nil {
			return fmt.Errorf("invalid run id %q", args[1])
		}
	case 0:
		ids, err := latestRuns(db, 2)
		if err != nil {
			return err
		}
		if len(ids) < 2 {
			return fmt.Errorf("need at least two archived runs to diff")
		}
		beforeID, afterID = ids[0], ids[1]
	default:
		return fmt.Errorf("diff takes zero or two run ids")
	}

	before, err := bundleFromRun(db, beforeID)
	if err != nil {
		return err
	}
	after, err := bundleFromRun(db, afterID)
	if err != nil {
		return err
	}
	out := unifiedDiff(planTableText(before), planTableText(after))
	if out == "" {
		fmt.Printf("runs %d and %d are identical\n", beforeID, afterID)
		return nil
	}
	fmt.Print(out)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openStore(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()

	var runID int64
	if len(args) == 1 {
		if runID, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
	} else {
		ids, err := latestRuns(db, 1)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no runs archived")
		}
		runID = ids[0]
	}
	bundle, err := bundleFromRun(db, runID)
	if err != nil {
		return err
	}

	if flagFormat == "xlsx" {
		if flagOutput == "" {
			return fmt.Errorf("xlsx export requires --output")
		}
		out, err := exportXLSX(bundle)
		if err != nil {
			return err
		}
		return os.WriteFile(flagOutput, out, 0o644)
	}

	w := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch flagFormat {
	case "yaml":
		return writePlanYAML(w, bundle)
	case "json":
		return writePlanJSON(w, bundle)
	case "csv":
		return writePlanCSV(w, bundle)
	}
	return fmt.Errorf("invalid format %q: must be yaml, json, csv or xlsx", flagFormat)
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openStore(flagDB)
	if err != nil {
		return err
	}
	defer db.Close()
	r := newRouter(db)
	log.Printf("listening on %s", flagListen)
	return r.Run(flagListen)
}
