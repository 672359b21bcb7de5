package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const historyPageSize = 100

func historyCmd() *cobra.Command {
	var (
		offset int64
		count  int64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print cached queries in index order, one JSON object per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 {
				return errors.New("--offset must be >= 0")
			}

			app, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			if app.Cache == nil {
				return errors.New("query cache is disabled")
			}

			ctx := cmd.Context()
			enc := json.NewEncoder(cmd.OutOrStdout())

			// count <= 0 表示输出到索引末尾
			scanned := int64(0)
			for cursor := offset; count <= 0 || scanned < count; {
				size := int64(historyPageSize)
				if count > 0 {
					size = min(size, count-scanned)
				}

				batch, err := app.Cache.Scan(ctx, cursor, size)
				if err != nil {
					return fmt.Errorf("scan index at %d: %w", cursor, err)
				}
				for _, q := range batch.Queries {
					if err := enc.Encode(q); err != nil {
						return err
					}
				}

				scanned += batch.Scanned
				cursor += batch.Scanned
				if batch.Scanned < size {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "index rank to start from")
	cmd.Flags().Int64Var(&count, "count", 0, "number of index entries to print (0: all)")

	return cmd
}
