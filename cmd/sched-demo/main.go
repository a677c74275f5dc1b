package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/op/go-logging"
	"github.com/viant/afs"

	"kernos/pkg/config"
	"kernos/pkg/image"
	"kernos/pkg/mem"
	"kernos/pkg/process"
	"kernos/pkg/security"
	"kernos/pkg/tracing"
)

const imageRoot = "mem://localhost/bin"

func main() {
	configPath := flag.String("config", "", "path to a YAML kernel config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	setupLogging(cfg.LogLevel)

	if cfg.TraceOutput != "" {
		shutdown, err := tracing.Init("sched-demo", "0.1.0", cfg.TraceOutput)
		if err != nil {
			log.Fatalf("init tracing: %v", err)
		}
		defer shutdown()
	}

	ctx := context.Background()
	fmt.Println("=== Kernos Scheduling Demo ===")
	fmt.Println()

	// Stage a couple of executable images in memory storage.
	fs := afs.New()
	for name, entry := range map[string]uint64{"sh": 0x400000, "worker": 0x500000} {
		img := image.Encode(entry, bytes.Repeat([]byte{0x90}, 256))
		if err := fs.Upload(ctx, imageRoot+"/"+name, 0755, bytes.NewReader(img)); err != nil {
			log.Fatalf("stage image %s: %v", name, err)
		}
	}

	policy := security.NewEngine()
	policy.DenyPathPrefix("forbidden/")

	k := process.New(cfg, process.NewSimCPU(), mem.NewAllocator(cfg.MemoryPages),
		image.NewLoader(imageRoot), policy)

	initPid, err := k.Boot()
	if err != nil {
		log.Fatalf("boot: %v", err)
	}
	fmt.Printf("Booted: init task pid=%d\n", initPid)

	fmt.Println("\n--- Fork and Exec ---")
	child, err := k.Fork(ctx)
	if err != nil {
		log.Fatalf("fork: %v", err)
	}
	fmt.Printf("Forked child pid=%d\n", child)

	k.YieldNow()
	if err := k.Execve(ctx, "sh", []string{"sh", "-c", "demo"}, []string{"HOME=/root"}); err != nil {
		log.Fatalf("execve: %v", err)
	}
	fmt.Printf("Child pid=%d now runs /bin/sh\n", k.CurrentPID())

	if err := k.Execve(ctx, "forbidden/rootkit", nil, nil); err != nil {
		fmt.Printf("Policy veto works: %v\n", err)
	}

	fmt.Println("\n--- Priorities and Preemption ---")
	hi, err := k.Spawn("interactive", process.PriorityHigh, 0x500000)
	if err != nil {
		log.Fatalf("spawn: %v", err)
	}
	lo, err := k.Spawn("batch", process.PriorityLow, 0x500000)
	if err != nil {
		log.Fatalf("spawn: %v", err)
	}
	fmt.Printf("Spawned pid=%d (high) and pid=%d (low)\n", hi, lo)

	for i := 0; i < 3; i++ {
		k.Tick()
		fmt.Printf("tick %d: running pid=%d\n", k.Ticks(), k.CurrentPID())
	}

	fmt.Println("\n--- Signals ---")
	if err := k.Kill(hi, process.SIGSTOP); err != nil {
		log.Fatalf("kill: %v", err)
	}
	fmt.Printf("Stopped pid=%d\n", hi)
	k.Tick()
	fmt.Printf("tick %d: running pid=%d\n", k.Ticks(), k.CurrentPID())
	if err := k.Kill(hi, process.SIGCONT); err != nil {
		log.Fatalf("kill: %v", err)
	}
	fmt.Printf("Continued pid=%d\n", hi)
	if err := k.Kill(hi, process.SIGTERM); err != nil {
		log.Fatalf("kill: %v", err)
	}
	if err := k.Kill(lo, process.SIGKILL); err != nil {
		log.Fatalf("kill: %v", err)
	}
	fmt.Printf("Terminated pid=%d and pid=%d\n", hi, lo)

	printTable(k)

	fmt.Println("\n--- Wait ---")
	// Run the sh child until it can exit, then collect it from init.
	for k.CurrentPID() != child {
		k.Tick()
	}
	k.Exit(3)
	for k.CurrentPID() != initPid {
		k.Tick()
	}
	for {
		pid, status, err := k.Wait4(ctx, process.WaitAny, process.WNOHANG)
		if err != nil || pid == 0 {
			break
		}
		switch {
		case status.Signaled():
			fmt.Printf("Reaped pid=%d, killed by signal %d\n", pid, status.TermSignal())
		default:
			fmt.Printf("Reaped pid=%d, exit code %d\n", pid, status.ExitStatus())
		}
	}

	printTable(k)
	fmt.Println("\nDemo complete.")
}

func setupLogging(level string) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{time:15:04:05.000} %{module} %{level:.4s} %{message}`)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
}

func printTable(k *process.Kernel) {
	fmt.Println("\n--- Task Table ---")
	fmt.Printf("%-6s %-6s %-10s %-9s %-8s %s\n", "PID", "PPID", "STATE", "PRIO", "CPU", "NAME")
	for _, t := range k.Tasks() {
		fmt.Printf("%-6d %-6d %-10s %-9d %-8d %s\n", t.PID, t.PPID, t.State, t.Priority, t.CPUTime, t.Name)
	}
}
