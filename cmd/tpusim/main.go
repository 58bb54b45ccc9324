// Command tpusim runs an instruction stream on the accelerator model.
//
// Without -program it generates a random quantized layer of the requested
// size, tiles it, runs it under the akita engine and checks the output
// against a direct computation. With -program it runs a YAML instruction
// stream against an optional raw memory image.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tpusim/api"
	"github.com/sarchlab/tpusim/config"
	"github.com/sarchlab/tpusim/core"
	"github.com/sarchlab/tpusim/util"
	"github.com/sarchlab/tpusim/verify"
	"github.com/tebeka/atexit"
)

var (
	configPath  = flag.String("config", "", "YAML configuration file")
	programPath = flag.String("program", "", "YAML instruction stream to run")
	imagePath   = flag.String("image", "", "raw off-chip memory image loaded at address 0")
	readAddr    = flag.Uint64("read-addr", 0, "address of an int32 matrix to print after -program")
	readRows    = flag.Int("read-rows", 0, "rows of the matrix at -read-addr")
	readCols    = flag.Int("read-cols", 0, "columns of the matrix at -read-addr")
	modeName    = flag.String("mode", "functional", "functional or timed")
	dimM        = flag.Int("m", 16, "rows of the generated activation matrix")
	dimK        = flag.Int("k", 16, "shared dimension of the generated problem")
	dimN        = flag.Int("n", 16, "columns of the generated weight matrix")
	seed        = flag.Int64("seed", 1, "seed for generated operands")
	explicit    = flag.Bool("explicit-tiles", false, "wrap generated tiles in begin_tile/end_tile")
	useMonitor  = flag.Bool("monitor", false, "start the akita monitoring server")
	logLevel    = flag.String("log-level", "info", "debug, trace, info, warn or error")
	logPath     = flag.String("log", "", "write the JSON log to this file instead of stderr")
	reportPath  = flag.String("report", "", "save the verification report to this file")
	dumpPath    = flag.String("dump", "", "save the generated program as YAML")
)

func main() {
	flag.Parse()

	setupLogging()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			atexit.Fatal(err)
		}
	}

	mode, err := core.ParseMode(*modeName)
	if err != nil {
		atexit.Fatal(err)
	}

	var code int
	if *programPath != "" {
		code = runProgram(cfg, mode)
	} else {
		code = runGenerated(cfg, mode)
	}

	atexit.Exit(code)
}

// setupLogging installs the JSON handler. A log file is closed by an atexit
// handler so fatal paths flush it too.
func setupLogging() {
	out := os.Stderr

	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			atexit.Fatal(err)
		}
		out = f
		atexit.Register(func() { f.Close() })
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: util.ParseLevel(*logLevel),
	})
	slog.SetDefault(slog.New(handler))
}

// newDriver wires a driver for u into a fresh serial engine.
func newDriver(u *core.Unit) api.Driver {
	engine := sim.NewSerialEngine()

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithUnit(u).
		Build("Driver")

	if *useMonitor {
		monitor := monitoring.NewMonitor()
		monitor.RegisterEngine(engine)
		monitor.RegisterComponent(driver)
		monitor.StartServer()
	}

	return driver
}

func randomProblem(m, k, n int, seed int64) verify.Problem {
	p := verify.Problem{
		A: util.FillMatrix(m, k, util.MakeRandomGen(seed, -128, 127)),
		W: util.FillMatrix(k, n, util.MakeRandomGen(seed+1, -128, 127)),
	}

	params := util.FillMatrix(3, n, util.MakeRandomGen(seed+2, -16, 16))
	for j := 0; j < n; j++ {
		p.Bias = append(p.Bias, int32(params[0][j])*64)
		p.ZeroPoint = append(p.ZeroPoint, int32(params[1][j]))
		p.QSF = append(p.QSF, int32(params[2][j])+17)
	}

	return p
}

func runGenerated(cfg config.Config, mode core.Mode) int {
	separator := "=============================================================="

	fmt.Println(separator)
	fmt.Printf("TILED MATMUL %dx%dx%d ON A %dx%d ARRAY (%s)\n",
		*dimM, *dimK, *dimN, cfg.ArraySize, cfg.ArraySize, mode)
	fmt.Println(separator)

	p := randomProblem(*dimM, *dimK, *dimN, *seed)

	session, err := verify.NewSession(p, cfg, mode,
		verify.TilingOptions{ExplicitTiles: *explicit})
	if err != nil {
		atexit.Fatal(err)
	}

	fmt.Printf("Generated %d instructions\n", session.Program.Len())

	if *dumpPath != "" {
		if err := core.SaveProgramFile(session.Program, *dumpPath); err != nil {
			atexit.Fatal(err)
		}
		fmt.Printf("Program saved to %s\n", *dumpPath)
	}

	driver := newDriver(session.Unit)
	driver.Enqueue(session.Program)

	res := session.Collect(driver.Run())
	report := res.Report()
	report.WriteReport(os.Stdout)

	if *reportPath != "" {
		if err := report.SaveReportToFile(*reportPath); err != nil {
			atexit.Fatal(err)
		}
	}

	if !report.Passed() {
		return 1
	}

	return 0
}

func runProgram(cfg config.Config, mode core.Mode) int {
	prog, err := core.LoadProgramFile(*programPath)
	if err != nil {
		atexit.Fatal(err)
	}

	issues := verify.RunLint(prog, cfg)
	for _, issue := range issues {
		slog.Warn("Lint", "Issue", issue.String())
	}

	u := core.NewBuilder().
		WithConfig(cfg).
		WithMode(mode).
		Build("TPU")

	if *imagePath != "" {
		image, err := os.ReadFile(*imagePath)
		if err != nil {
			atexit.Fatal(err)
		}
		u.HostStore(0, image)
	}

	driver := newDriver(u)
	driver.Enqueue(prog)

	runErr := driver.Run()

	fmt.Printf("Executed %d of %d instructions, %d lint issues\n",
		u.Executed(), prog.Len(), len(issues))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Opcode", "Cycle"})
	for _, r := range driver.Records() {
		t.AppendRow(table.Row{r.Index, r.Opcode, r.Cycle})
	}
	t.Render()

	verify.WriteStats(os.Stdout, u.Stats())

	if *readRows > 0 && *readCols > 0 {
		for _, row := range u.HostReadInt32(*readAddr, *readRows, *readCols) {
			fmt.Println(row)
		}
	}

	if runErr != nil {
		fmt.Println("Run failed:", runErr)
		return 1
	}

	return 0
}
