package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
)

// runExec executes one SQL statement and prints the result, for
// scripting and quick checks without an MCP client.
func runExec() error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	connectionID := fs.String("connection", "", "Connection id (default: the default connection)")
	format := fs.String("format", "summary", "Output format: summary, csv, json")
	maxRows := fs.Int("max-rows", 0, "Maximum rows to return (0 = config default)")
	timeoutMs := fs.Int("timeout-ms", 0, "Timeout in milliseconds (0 = config default)")
	outPath := fs.String("output", "", "Write output to a file instead of stdout")
	fs.Parse(os.Args[2:])

	sql := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if sql == "" {
		// No SQL on the command line: read it from stdin, so
		// `hanagate exec < query.sql` works.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read SQL from stdin: %w", err)
		}
		sql = strings.TrimSpace(string(data))
	}
	if sql == "" {
		return fmt.Errorf("no SQL given: pass it as arguments or on stdin")
	}

	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(serverConfig.Logging)

	sqlBackend := backend.NewSQLBackend()
	defer sqlBackend.Close()

	gw, store, err := buildGateway(serverConfig, sqlBackend, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	if err := promptMissingPassword(gw.Registry(), *connectionID); err != nil {
		return err
	}

	result := gw.Execute(context.Background(), *connectionID, sql, hanagate.ExecOptions{
		MaxRows:       *maxRows,
		TimeoutMillis: *timeoutMs,
	})

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return printResult(out, result, *format)
}

// promptMissingPassword asks for the target profile's password on the
// terminal when neither config nor environment provided one. Without a
// TTY the execution proceeds and the backend reports the auth failure.
func promptMissingPassword(registry *hanagate.ConnectionRegistry, connectionID string) error {
	var profile hanagate.ConnectionProfile
	var err error
	if connectionID == "" {
		profile, err = registry.GetDefault()
	} else {
		profile, err = registry.Get(connectionID)
	}
	if err != nil || profile.Password != "" {
		// Unknown connections fail inside Execute with a proper result.
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", profile.ID)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	profile.Password = string(password)

	// Re-register with the password filled in.
	if _, err := registry.Remove(profile.ID); err != nil {
		return err
	}
	wasDefault := profile.IsDefault
	profile.IsDefault = false
	if _, err := registry.Register(profile); err != nil {
		return err
	}
	if wasDefault {
		return registry.SetDefault(profile.ID)
	}
	return nil
}

func printResult(w io.Writer, result *hanagate.QueryResult, format string) error {
	f := hanagate.Formatter{}

	if !result.Success {
		fmt.Fprintf(w, "Query failed [%s]: %s\n", result.Error.Code, result.Error.Message)
		if result.Error.Detail != "" {
			fmt.Fprintf(w, "%s\n", result.Error.Detail)
		}
		return fmt.Errorf("query failed")
	}

	switch format {
	case "csv":
		out, err := f.ToDelimitedText(result)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	case "json":
		out, err := f.ToStructuredDocument(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "summary":
		s := f.Summarize(result)
		fmt.Fprintf(w, "%d rows, %d columns in %dms", s.RowCount, s.ColumnCount, s.ElapsedMs)
		if result.RowsAffected > 0 {
			fmt.Fprintf(w, " (%d rows affected)", result.RowsAffected)
		}
		if s.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	default:
		return fmt.Errorf("unknown format %q: use summary, csv, or json", format)
	}

	if result.Metadata != nil {
		for _, warning := range result.Metadata.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}
	return nil
}
