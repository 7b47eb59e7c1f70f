/*
Package cli holds the helpers shared by the bulwark subcommands: typed
errors that map to exit codes, text and JSON output, and a signal-aware
context.

Output Formatting:

Commands print either plain text or indented JSON. Values that implement
TextRenderer control their own text form; everything else is printed
with %v:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	return cli.Print(cmd.OutOrStdout(), format, account)

Exit Codes:

	os.Exit(cli.ExitCode(err))

ConfigError maps to ExitConfig, every other error to ExitFailure.

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
