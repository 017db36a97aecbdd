// main provides the gridsearch CLI entry point with subcommand routing
package main

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/alexflint/go-arg"
	_ "github.com/nathants/gridsearch/cmd/list"
	_ "github.com/nathants/gridsearch/cmd/search"
	"github.com/nathants/gridsearch/lib"
)

func usage() {
	fmt.Fprintln(os.Stderr, "gridsearch - find and select rows in paginated HTML tables")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Quick Start:")
	fmt.Fprintln(os.Stderr, "  gridsearch list                                   # See open tabs")
	fmt.Fprintln(os.Stderr, "  gridsearch -t localhost:3000 search -l grid.yaml Grady")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Global Options (must appear before command):")
	fmt.Fprintln(os.Stderr, "  -t, --target URL_PREFIX                           # Select tab by URL prefix")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment:")
	fmt.Fprintln(os.Stderr, "  CHROME_URL      remote debugging endpoint (default http://localhost:9222)")
	fmt.Fprintln(os.Stderr, "  CHROME_TARGET   default tab URL prefix")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")

	var fns []string
	maxLen := 0
	for fn := range lib.Commands {
		fns = append(fns, fn)
		if len(fn) > maxLen {
			maxLen = len(fn)
		}
	}
	sort.Strings(fns)
	fmtStr := "  %-" + fmt.Sprint(maxLen) + "s %s\n"
	for _, fn := range fns {
		fmt.Fprintf(os.Stderr, fmtStr, fn, usageLine(lib.Args[fn]))
	}
}

// usageLine renders the go-arg usage line of a command's args struct.
func usageLine(args lib.ArgsStruct) string {
	val := reflect.ValueOf(args)
	ptr := reflect.New(val.Type())
	ptr.Elem().Set(val)
	p, err := arg.NewParser(arg.Config{Program: "gridsearch"}, ptr.Interface())
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	p.WriteUsage(&buf)
	line := strings.TrimSpace(buf.String())
	return strings.TrimPrefix(line, "Usage: gridsearch")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	args := append([]string{}, os.Args[1:]...)
	target := ""
	for len(args) > 0 {
		a := args[0]
		if a == "-h" || a == "--help" {
			usage()
			os.Exit(0)
		}
		if a == "-t" || a == "--target" {
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "error: --target requires a value")
				os.Exit(1)
			}
			target = args[1]
			args = args[2:]
			continue
		}
		if strings.HasPrefix(a, "--target=") {
			target = strings.TrimPrefix(a, "--target=")
			args = args[1:]
			continue
		}
		if strings.HasPrefix(a, "-t=") {
			target = strings.TrimPrefix(a, "-t=")
			args = args[1:]
			continue
		}
		break
	}
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	if strings.TrimSpace(target) != "" {
		if err := os.Setenv("CHROME_TARGET", target); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	cmd := args[0]
	fn, ok := lib.Commands[cmd]
	if !ok {
		usage()
		fmt.Fprintln(os.Stderr, "\nunknown command:", cmd)
		os.Exit(1)
	}
	os.Args = args
	fn()
}
