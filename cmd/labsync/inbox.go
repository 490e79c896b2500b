package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nicudesk/labsync/internal/logging"
	"github.com/nicudesk/labsync/internal/pipeline"
	"github.com/nicudesk/labsync/internal/store"
)

var inboxAll bool

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List reports waiting for human review",
	RunE:  runInbox,
}

func init() {
	inboxCmd.Flags().BoolVar(&inboxAll, "all", false, "Include resolved items")
	rootCmd.AddCommand(inboxCmd)
}

func runInbox(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error().Err(err).Msg("open document store failed")
		os.Exit(1)
	}
	defer st.Close()

	var items []pipeline.ReviewItem
	err = st.List(ctx, "review/", func(path string, raw []byte) error {
		var item pipeline.ReviewItem
		if err := store.Decode(raw, &item); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if inboxAll || item.Status == "Pending" {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("list review items failed")
		os.Exit(1)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ReceivedAt.After(items[j].ReceivedAt)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tPATIENT HINT\tVALUES\tSTATUS\tREASON")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.ReceivedAt.Format("2006-01-02 15:04"),
			item.PatientNameHint,
			len(item.Values),
			item.Status,
			item.Reason)
	}
	return w.Flush()
}
