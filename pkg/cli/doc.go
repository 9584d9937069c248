// Package cli provides the output helpers shared by meetrec subcommands:
// structured output (YAML, JSON, table) and styled check reports.
//
//	cli.Output(meetings, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	    Writer: cmd.OutOrStdout(),
//	})
package cli
