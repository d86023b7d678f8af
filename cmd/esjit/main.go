// Command esjit loads a .esbin image, JITs one of its functions, and
// invokes it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/xyproto/env/v2"

	"github.com/esbinlang/esjit"
)

var trace = env.Bool("ESJIT_TRACE")

func tracef(format string, args ...any) {
	if trace {
		fmt.Fprintf(os.Stderr, "esjit: "+format+"\n", args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "dump":
		err = cmdDump(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("esjit: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  esjit run <file.esbin> <funcname-index> [args...]")
	fmt.Fprintln(os.Stderr, "  esjit dump <file.esbin>")
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: esjit run <file.esbin> <funcname-index> [args...]")
	}

	path := rest[0]
	nameIdx, err := strconv.ParseUint(rest[1], 10, 16)
	if err != nil {
		return fmt.Errorf("funcname-index must be a constant-table index: %w", err)
	}
	callArgs, err := parseUint64Args(rest[2:])
	if err != nil {
		return err
	}

	img, err := loadImage(path)
	if err != nil {
		return err
	}

	def, ok := img.FindFunction(uint16(nameIdx))
	if !ok {
		return fmt.Errorf("no function with name index %d in %s", nameIdx, path)
	}

	tracef("transpiling function at name index %d (%d bytecode bytes)", nameIdx, len(def.Code))
	nf, err := esjit.NewNativeFunction(def, rest[1])
	if err != nil {
		return fmt.Errorf("transpile: %w", err)
	}
	defer nf.Release()

	tracef("emitted %d bytes of machine code; making page executable", len(nf.Code()))
	if err := nf.MakeExecutable(); err != nil {
		return fmt.Errorf("make executable: %w", err)
	}

	ret := nf.CallRet(callArgs...)
	fmt.Println(ret)
	return nil
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("usage: esjit dump <file.esbin>")
	}

	img, err := loadImage(rest[0])
	if err != nil {
		return err
	}

	fmt.Printf("constants: %d\n", len(img.Constants.Entries))
	fmt.Printf("fields:    %d\n", len(img.Fields.Entries))
	fmt.Printf("functions: %d\n", len(img.Functions.Entries))
	fmt.Printf("classes:   %d\n", len(img.Classes.Entries))
	for i, fn := range img.Functions.Entries {
		fmt.Printf("  [%d] name=%d args=%d code_len=%d\n", i, fn.Name, len(fn.Args), len(fn.Code))
	}
	return nil
}

func loadImage(path string) (*esjit.Image, error) {
	if err := esjit.InitPageSize(); err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := esjit.Parse(bytes)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func parseUint64Args(raw []string) ([]uint64, error) {
	out := make([]uint64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
