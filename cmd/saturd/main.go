// SPDX-License-Identifier: Apache-2.0

// saturd is a demo harness: it loads a file of clauses written in the
// termtext fixture notation, installs the PDT/FVI/FP indices on a clause
// set, flags structural duplicates, and prints the resulting set. It has
// no TPTP/TSTP/LOP input support and no proof search — both are out of
// scope for the core this demo exercises.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"satur/internal/clause"
	"satur/internal/core"
	"satur/internal/equation"
	"satur/internal/index/fpindex"
	"satur/internal/index/fvindex"
	"satur/internal/index/pdt"
	"satur/internal/signature"
	"satur/internal/termbank"
	"satur/internal/termtext"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: saturd <clauses-file>")
		os.Exit(1)
	}

	path := os.Args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	ctx := core.New()
	reader := termtext.NewReader(ctx)
	set := ctx.NewClauseSet()

	set.InstallIndex(pdt.New())
	set.InstallIndex(fvindex.New(fvindex.Config{}))
	set.InstallIndex(fpindex.New(nil))

	for i, line := range clauseLines(string(source)) {
		cl, err := reader.ReadClause(line)
		if err != nil {
			color.Red("%s:%d: %s", path, i+1, err)
			os.Exit(1)
		}
		set.Insert(cl)
	}

	color.Green("loaded %d clauses from %s", set.Count(), path)

	if dupes := set.MarkCopies(); len(dupes) > 0 {
		color.Yellow("%d structurally duplicate clause(s) flagged", len(dupes))
	}

	set.Each(func(c *clause.Clause) {
		marker := " "
		if c.Props&clause.PropDuplicate != 0 {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s  (weight %d)\n", marker, c.ID, formatClause(ctx.Sig, c), c.Weight())
	})
}

// clauseLines strips blank lines and "#"-prefixed comments, each
// remaining line expected to be one termtext clause.
func clauseLines(src string) []string {
	var lines []string
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func formatClause(sig *signature.Table, c *clause.Clause) string {
	var parts []string
	for l := c.Literals; l != nil; l = l.Next {
		parts = append(parts, formatLiteral(sig, l))
	}
	return strings.Join(parts, " | ")
}

func formatLiteral(sig *signature.Table, l *equation.Equation) string {
	if !l.Equational {
		sign := ""
		if !l.Positive {
			sign = "~"
		}
		return sign + formatTerm(sig, l.LHS)
	}
	op := "="
	if !l.Positive {
		op = "!="
	}
	return formatTerm(sig, l.LHS) + " " + op + " " + formatTerm(sig, l.RHS)
}

func formatTerm(sig *signature.Table, t *termbank.Term) string {
	switch {
	case t.IsFreeVar():
		return fmt.Sprintf("X%d", t.Var.ID)
	case t.IsDBVar():
		return fmt.Sprintf("#%d", t.DB.Index)
	default:
		name := sig.Name(t.FCode)
		if len(t.Args) == 0 {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = formatTerm(sig, a)
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	}
}
