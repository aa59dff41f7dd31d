// Command sixjit loads a BBC-Micro-shaped 6502 ROM image and runs it
// under the translating supervisor until it stops or the host asks it to.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pagefault-systems/sixjit/internal/arena"
	"github.com/pagefault-systems/sixjit/internal/memory"
	"github.com/pagefault-systems/sixjit/internal/peripheral"
	"github.com/pagefault-systems/sixjit/internal/supervisor"
	"github.com/pagefault-systems/sixjit/internal/translator"
	"github.com/pagefault-systems/sixjit/internal/xlog"
)

type bankSpec struct {
	slot     int
	path     string
	writable bool
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s -rom <os.rom> [options]

  -rom <path>          16 KiB OS ROM image, loaded at $C000
  -bank N=<path>       sideways ROM image, loaded into bank slot N (0-15); repeatable
  -bank-ram N=<path>   same, but marked writable (sideways RAM)
  -via <addr>          hex base address of a 6522 VIA stub (e.g. -via 0xFE40); default: no VIA
  -budget <n>          cycle budget per translated slice (default 4000)
  -verbose             enable debug logging
`, os.Args[0])
	os.Exit(1)
}

func main() {
	var romPath string
	var viaAddr = -1
	var budget = 4000
	var verbose bool
	var banks []bankSpec

	args := os.Args[1:]
	i := 0
	for i < len(args) {
		switch {
		case args[i] == "-rom" && i+1 < len(args):
			romPath = args[i+1]
			i += 2
		case args[i] == "-bank" && i+1 < len(args):
			b, err := parseBank(args[i+1], false)
			if err != nil {
				fmt.Fprintf(os.Stderr, "sixjit: %v\n", err)
				os.Exit(1)
			}
			banks = append(banks, b)
			i += 2
		case args[i] == "-bank-ram" && i+1 < len(args):
			b, err := parseBank(args[i+1], true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "sixjit: %v\n", err)
				os.Exit(1)
			}
			banks = append(banks, b)
			i += 2
		case args[i] == "-via" && i+1 < len(args):
			n, err := strconv.ParseInt(strings.TrimPrefix(args[i+1], "0x"), 16, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "sixjit: invalid -via address %q: %v\n", args[i+1], err)
				os.Exit(1)
			}
			viaAddr = int(n)
			i += 2
		case args[i] == "-budget" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "sixjit: invalid -budget %q: %v\n", args[i+1], err)
				os.Exit(1)
			}
			budget = n
			i += 2
		case args[i] == "-verbose":
			verbose = true
			i++
		default:
			usage()
		}
	}

	if romPath == "" {
		usage()
	}

	log := xlog.Default(verbose)
	if err := run(romPath, banks, viaAddr, int32(budget), log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func parseBank(spec string, writable bool) (bankSpec, error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return bankSpec{}, fmt.Errorf("bank spec %q must be N=path", spec)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return bankSpec{}, fmt.Errorf("bank spec %q: %w", spec, err)
	}
	return bankSpec{slot: n, path: parts[1], writable: writable}, nil
}

func run(romPath string, banks []bankSpec, viaAddr int, budget int32, log *xlog.Logger) error {
	a, err := arena.New()
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	defer a.Close()

	mem := memory.NewOver(a.GuestMemory())

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("read OS ROM: %w", err)
	}
	if err := mem.LoadROM(rom); err != nil {
		return fmt.Errorf("load OS ROM: %w", err)
	}

	for _, b := range banks {
		image, err := os.ReadFile(b.path)
		if err != nil {
			return fmt.Errorf("read bank %d: %w", b.slot, err)
		}
		if err := mem.LoadSidewaysBank(b.slot, image, b.writable); err != nil {
			return fmt.Errorf("load bank %d: %w", b.slot, err)
		}
	}
	if len(banks) > 0 {
		mem.SelectBank(banks[0].slot)
	}

	var io peripheral.Peripheral
	if viaAddr >= 0 {
		via := peripheral.NewViaStub(uint16(viaAddr), log)
		io = via
	} else {
		io = &peripheral.NullPeripheral{Log: log}
	}

	tr := translator.New(a, mem, log)
	arena.WatchGuardPages(log)

	sv := supervisor.New(mem, a, tr, io, log, budget)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("stop requested")
		sv.RequestStop()
	}()

	log.Infof("starting at reset vector $%04X", mem.ResetVector())
	if err := sv.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	log.Infof("stopped after %d cycles", sv.TotalCycles)
	return nil
}
