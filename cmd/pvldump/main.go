package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pspoerri/isiscam/internal/pvl"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: pvldump <file.cub|file.lbl> [object-or-group]\n")
		os.Exit(1)
	}
	lbl, err := pvl.Read(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading label: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 2 {
		name := os.Args[2]
		if o, ok := lbl.FindObject(name); ok {
			dumpObject(o, 0)
			return
		}
		if g, ok := lbl.FindGroup(name); ok {
			dumpGroup(g, 0)
			return
		}
		fmt.Printf("No object or group named %q\n", name)
		os.Exit(1)
	}

	dumpKeywords(lbl.Keywords, 0)
	for _, g := range lbl.Groups {
		dumpGroup(g, 0)
	}
	for _, o := range lbl.Objects {
		dumpObject(o, 0)
	}
}

func dumpObject(o *pvl.Object, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Printf("%sObject = %s\n", pad, o.Name)
	dumpKeywords(o.Keywords, depth+1)
	for _, g := range o.Groups {
		dumpGroup(g, depth+1)
	}
	for _, c := range o.Objects {
		dumpObject(c, depth+1)
	}
	fmt.Printf("%sEnd_Object\n", pad)
}

func dumpGroup(g *pvl.Group, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Printf("%sGroup = %s\n", pad, g.Name)
	dumpKeywords(g.Keywords, depth+1)
	fmt.Printf("%sEnd_Group\n", pad)
}

func dumpKeywords(kws []pvl.Keyword, depth int) {
	width := 0
	for _, kw := range kws {
		width = max(width, len(kw.Name))
	}
	pad := strings.Repeat("  ", depth)
	for _, kw := range kws {
		fmt.Printf("%s%-*s = %s\n", pad, width, kw.Name, kw.String())
	}
}
