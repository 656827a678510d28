package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var queueAll bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and maintain the offline queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices waiting for upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		records, err := c.Store.ListUnsynced(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSUPPLIER\tAMOUNT\tCONFIDENCE")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Extraction.Supplier, r.Extraction.Amount, r.Extraction.Confidence)
		}
		return w.Flush()
	},
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		st, err := c.Store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nunsynced: %d\nsynced: %d\n", st.Total, st.Unsynced, st.Synced)
		return nil
	},
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove invoices that have already been uploaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := c.Store.PurgeSynced(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d synced invoices\n", n)
		return nil
	},
}

var queueDiscardCmd = &cobra.Command{
	Use:   "discard <id>",
	Short: "Drop one queued invoice without uploading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Store.Discard(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", args[0])
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd, queueStatsCmd, queuePurgeCmd, queueDiscardCmd)
	rootCmd.AddCommand(queueCmd)
}
