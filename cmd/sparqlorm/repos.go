package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// systemRepository is present on every Sesame server and stands in when no
// repository is configured, since listing does not address one.
const systemRepository = "SYSTEM"

// NewReposCommand creates the repos command.
func NewReposCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "repos",
		Short:        "List the repositories on the configured server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepos(opts, cmd)
		},
	}
}

func runRepos(opts *RootOptions, cmd *cobra.Command) error {
	store, err := opts.openStore(systemRepository)
	if err != nil {
		return err
	}
	defer store.Close()

	repos, err := store.Repositories(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "list repositories", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, repos)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tREADABLE\tWRITABLE")
	for _, r := range repos {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", r.ID, r.Title, r.Readable, r.Writable)
	}
	return tw.Flush()
}
