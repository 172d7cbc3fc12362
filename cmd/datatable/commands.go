package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"datatables/internal/analyze"
	"datatables/internal/diagnostic"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func subcommand(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	return fs
}

func onePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 {
		return "", errUsage
	}

	return fs.Arg(0), nil
}

func runSchemas(_ context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	for _, name := range a.svc.SchemaTypes() {
		fmt.Fprintln(a.stdout, name)
	}

	return nil
}

func runNew(ctx context.Context, a *app, args []string) error {
	fs := subcommand(a, "new")
	schema := fs.String("schema", "", "row type of the new table (see `datatable schemas`)")
	path, err := onePath(fs, args)
	if err != nil || *schema == "" {
		return errUsage
	}

	diags := a.svc.Validate(*schema)
	printDiagnostics(a.stdout, path, diags)
	if err := diags.Error(); err != nil {
		return fmt.Errorf("new %s: %w", path, err)
	}

	if _, err := a.svc.Create(ctx, *schema, path); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "created %s (%s)\n", path, *schema)

	return nil
}

func runCheck(ctx context.Context, a *app, args []string) error {
	path, err := onePath(subcommand(a, "check"), args)
	if err != nil {
		return err
	}

	t, diags, err := a.svc.Check(ctx, path)
	printDiagnostics(a.stdout, path, diags)
	if err != nil {
		return err
	}
	if err := diags.Error(); err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}

	fmt.Fprintf(a.stdout, "%s: ok, %d rows of %s\n", path, t.Len(), t.SchemaType)

	return nil
}

func runFmt(ctx context.Context, a *app, args []string) error {
	fs := subcommand(a, "fmt")
	dry := fs.Bool("n", false, "print the formatted table instead of writing it")
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}

	t, err := a.svc.Load(ctx, path)
	if err != nil {
		return err
	}

	if *dry {
		data, err := a.svc.Encode(t)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)

		return err
	}

	return a.svc.Save(ctx, t, "")
}

func runDump(ctx context.Context, a *app, args []string) error {
	path, err := onePath(subcommand(a, "dump"), args)
	if err != nil {
		return err
	}

	t, err := a.svc.Load(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s: %s, counter %d, version %d\n", path, t.SchemaType, t.EntryCounter, t.Version)
	for _, row := range t.Entries {
		dumper.Fdump(a.stdout, row)
	}

	return nil
}

func runLint(_ context.Context, a *app, args []string) error {
	fs := subcommand(a, "lint")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}

	analyzer := analyze.NewAnalyzer()
	if _, err := analyzer.LoadPackages(fs.Args()...); err != nil {
		return err
	}

	rows := analyzer.Rows()
	diags := analyzer.Lint()
	printDiagnostics(a.stdout, "", diags)
	if err := diags.Error(); err != nil {
		return fmt.Errorf("lint: %w", err)
	}

	fmt.Fprintf(a.stdout, "%d row types ok\n", len(rows))

	return nil
}

func printDiagnostics(w io.Writer, path string, diags *diagnostic.Diagnostics) {
	if diags == nil {
		return
	}

	prefix := ""
	if path != "" {
		prefix = path + ": "
	}

	for _, list := range [][]diagnostic.Diagnostic{diags.Errors, diags.Warnings, diags.Infos} {
		for _, d := range list {
			fmt.Fprintf(w, "%s%s: %s\n", prefix, d.Severity, d)
		}
	}
}
