package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/AndreasM009/entitystore-go/revision"
)

func newDecodeCmd() *cobra.Command {
	var (
		typeName string
		method   string
	)

	cmd := &cobra.Command{
		Use:   "decode <serialized>",
		Short: "Decode a serialized revision and show the quoting method that worked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var preferred revision.Method
			if err := preferred.UnmarshalText([]byte(method)); err != nil {
				return err
			}

			rev, resolved, err := revision.Decode(revision.DefaultRegistry(), json.Unmarshal, typeName, args[0], preferred)
			if err != nil {
				return err
			}

			out, err := json.Marshal(rev)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revision: %s\nmethod: %s\n", out, resolved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "int64", "Revision type name")
	cmd.Flags().StringVarP(&method, "method", "m", "WITHOUT_QUOTATIONS", "Preferred quoting method")

	return cmd
}
