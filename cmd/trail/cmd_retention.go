package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/trail/client"
)

var errSweepQueueFull = errors.New("server sweep queue is full, retry later")

func newLimitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits <item_type>",
		Short: "Show the effective retention limits for an item type",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			lim, err := apiClient.Retention.Limits(context.Background(), args[0])
			if err != nil {
				fatal("get limits", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"SETTING", "VALUE"}, [][]string{
					{"version_limit", limitString(lim.VersionLimit)},
					{"objects_limit", limitString(lim.ObjectsLimit)},
					{"enable_objects_limit", strconv.FormatBool(lim.ObjectsLimitEnabled)},
					{"changes_limit", limitString(lim.ChangesLimit)},
					{"enable_changes_limit", strconv.FormatBool(lim.ChangesLimitEnabled)},
					{"policy", lim.Policy},
					{"deletion_threshold", limitString(lim.DeletionThreshold)},
				})
				return
			}
			output(lim, limitString(lim.DeletionThreshold))
		},
	}
}

func newSweepCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "sweep <item_type>",
		Short: "Re-apply retention to every item of a type",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			if !wait {
				if err := apiClient.Retention.Sweep(ctx, args[0]); err != nil {
					if client.IsUnavailable(err) {
						fatal("queue sweep", errSweepQueueFull)
					}
					fatal("queue sweep", err)
				}
				output(map[string]string{"item_type": args[0], "status": "queued"}, args[0])
				return
			}
			res, err := apiClient.Retention.SweepWait(ctx, args[0])
			if err != nil {
				fatal("sweep", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"ITEMS", "DELETED", "OBJECTS CLEARED", "CHANGES CLEARED", "FAILED"}, [][]string{{
					strconv.Itoa(res.Items), strconv.Itoa(res.Deleted), strconv.Itoa(res.ObjectsCleared),
					strconv.Itoa(res.ChangesCleared), strconv.Itoa(res.Failed),
				}})
				return
			}
			output(res, strconv.Itoa(res.Items))
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Run the sweep synchronously and print totals")
	return cmd
}
