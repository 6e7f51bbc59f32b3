package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/trail/client"
)

func newRecordCmd() *cobra.Command {
	var event, objectJSON, changesJSON, whodunnit string
	cmd := &cobra.Command{
		Use:   "record <item_type> <item_id>",
		Short: "Record a version and enforce retention for the item",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			req := client.RecordRequest{ItemType: args[0], ItemID: args[1], Event: event}
			if whodunnit != "" {
				req.Whodunnit = &whodunnit
			}
			for _, p := range []struct {
				name, raw string
				dst       *json.RawMessage
			}{{"object", objectJSON, &req.Object}, {"changes", changesJSON, &req.ObjectChanges}} {
				if p.raw == "" {
					continue
				}
				if !json.Valid([]byte(p.raw)) {
					fatal("parse "+p.name, fmt.Errorf("not valid JSON"))
				}
				*p.dst = json.RawMessage(p.raw)
			}
			resp, err := apiClient.Versions.Record(context.Background(), req)
			if err != nil {
				fatal("record version", err)
			}
			output(resp, strconv.FormatInt(resp.ID, 10))
			if resp.PruneError != "" {
				fatal("enforce retention", fmt.Errorf("%s", resp.PruneError))
			}
		},
	}
	cmd.Flags().StringVar(&event, "event", "update", "Event: create|update|destroy")
	cmd.Flags().StringVar(&objectJSON, "object", "", "Snapshot of the item before the change, as JSON")
	cmd.Flags().StringVar(&changesJSON, "changes", "", "Diff of the change, as JSON")
	cmd.Flags().StringVar(&whodunnit, "whodunnit", "", "Actor responsible for the change")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history <item_type> <item_id>",
		Short: "List an item's versions, newest first",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			versions, hasMore, err := apiClient.Versions.List(context.Background(), args[0], args[1],
				&client.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				fatal("list versions", err)
			}
			switch flagFmt {
			case "table":
				rows := make([][]string, len(versions))
				for i, v := range versions {
					who := ""
					if v.Whodunnit != nil {
						who = *v.Whodunnit
					}
					rows[i] = []string{
						strconv.FormatInt(v.ID, 10), v.Event, who,
						truncate(string(v.Object), 40), truncate(string(v.ObjectChanges), 40),
						v.CreatedAt.Format("2006-01-02 15:04:05"),
					}
				}
				formatTable([]string{"ID", "EVENT", "WHODUNNIT", "OBJECT", "CHANGES", "CREATED"}, rows)
			case "quiet":
				for _, v := range versions {
					formatQuiet(strconv.FormatInt(v.ID, 10))
				}
			default:
				formatJSON(map[string]any{"versions": versions, "has_more": hasMore})
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum versions to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Versions to skip")
	return cmd
}

func newEnforceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enforce <item_type> <item_id>",
		Short: "Apply retention limits to one item",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			res, err := apiClient.Versions.Enforce(context.Background(), args[0], args[1])
			if err != nil {
				fatal("enforce retention", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"THRESHOLD", "DELETED", "OBJECTS CLEARED", "CHANGES CLEARED", "SKIPPED"}, [][]string{{
					limitString(res.Threshold), strconv.Itoa(res.Deleted), strconv.Itoa(res.ObjectsCleared),
					strconv.Itoa(res.ChangesCleared), strconv.FormatBool(res.Skipped),
				}})
				return
			}
			output(res, strconv.Itoa(res.Deleted))
		},
	}
}
