// orunmap prints the memory maps an Out Run class board is configured with
// and optionally resolves addresses against them.
//
// Usage:
//
//	orunmap -romset shangon 0x140000 sub:0x68000
//	orunmap -romset outrunb -reset 0x100000
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"

	"github.com/jmchacon/vidhw/logger"
	"github.com/jmchacon/vidhw/mapper"
	"github.com/jmchacon/vidhw/segaorun"
)

var (
	romset = flag.String("romset", "outrun", "ROM set whose board to configure")
	read   = flag.Bool("read", false, "If true also perform a read of each resolved address and print the value")
	debug  = flag.Bool("debug", false, "If true also log debug detail such as sprite draws")
	reset  = flag.Bool("reset", false, "If true skip the boot code's region setup and show the map as it is out of reset")
)

func printMap(b *segaorun.Board, cpu mapper.CPU) {
	fmt.Printf("%v CPU:\n", cpu)
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "BASE\tEND\tMIRROR\tKIND\tLABEL")
	for _, e := range b.Mapper().Entries(cpu) {
		kind := "handler"
		switch {
		case e.Backing != nil && e.ROM:
			kind = "ROM"
		case e.Backing != nil && e.Write != nil:
			kind = "RAM+hook"
		case e.Backing != nil:
			kind = "RAM"
		}
		fmt.Fprintf(w, "%.6X\t%.6X\t%.6X\t%s\t%s\n", e.Base, e.Base+e.Size-1, e.MirrorMask, kind, e.Label)
	}
	w.Flush()
}

// parseAddr takes [main:|sub:]addr.
func parseAddr(s string) (mapper.CPU, uint32, error) {
	cpu := mapper.Main
	if i := strings.Index(s, ":"); i >= 0 {
		switch s[:i] {
		case "main":
		case "sub":
			cpu = mapper.Sub
		default:
			return 0, 0, fmt.Errorf("unknown CPU %q", s[:i])
		}
		s = s[i+1:]
	}
	a, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("can't parse address %q: %v", s, err)
	}
	return cpu, uint32(a), nil
}

func main() {
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	l := logger.New(0)
	l.SetEcho(log.StandardLogger())
	b, err := segaorun.Init(&segaorun.BoardDef{
		Romset: *romset,
		Log:    l,
		SpriteDraw: func() {
			log.Debug("sprite draw")
		},
	})
	if err != nil {
		log.Fatalf("Can't init board: %v", err)
	}
	if !*reset {
		// What the game's boot code does.
		for i, v := range segaorun.StandardLayout {
			b.Write(mapper.Main, 0xFFFF20+uint32(i)*2, uint16(v), 0x00FF)
		}
	}
	log.Debugf("%s: %d log entries after setup", *romset, l.Len())
	fmt.Printf("%s uses the %v I/O layout\n\n", *romset, b.Variant())
	printMap(b, mapper.Main)
	fmt.Println()
	printMap(b, mapper.Sub)

	for _, arg := range flag.Args() {
		cpu, addr, err := parseAddr(arg)
		if err != nil {
			log.Fatal(err)
		}
		e, ok := b.Mapper().Resolve(cpu, addr)
		if !ok {
			fmt.Printf("%v %.6X: unmapped\n", cpu, addr)
			continue
		}
		fmt.Printf("%v %.6X: %s offset %.6X", cpu, addr, e.Label, e.Offset(addr))
		if *read {
			fmt.Printf(" = %.4X", b.Read(cpu, addr, 0xFFFF))
		}
		fmt.Println()
	}
}
