package admin

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzbill/segstore/internal/archive"
	"github.com/rzbill/segstore/internal/runtime"
)

// NewMetadataCommand constructs the `metadata` command group.
func NewMetadataCommand(open OpenFunc) *cobra.Command {
	mdCmd := &cobra.Command{Use: "metadata", Short: "Topic metadata operations"}
	mdCmd.AddCommand(
		newMetadataKeysCommand(open),
		newMetadataGetCommand(open),
		newMetadataPutCommand(open),
		newMetadataRmCommand(open),
	)
	return mdCmd
}

func newMetadataKeysCommand(open OpenFunc) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List metadata keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				keys, err := t.Metadata().Keys(cmd.Context())
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
	addTopicFlag(keysCmd)
	return keysCmd
}

func newMetadataGetCommand(open OpenFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print a metadata value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, _ := cmd.Flags().GetString("key")
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				v, err := t.Metadata().Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(v)
				return err
			})
		},
	}
	addTopicFlag(getCmd)
	getCmd.Flags().String("key", "", "Metadata key")
	return getCmd
}

func newMetadataPutCommand(open OpenFunc) *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Store a metadata value from --value or --file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, _ := cmd.Flags().GetString("key")
			value, _ := cmd.Flags().GetString("value")
			file, _ := cmd.Flags().GetString("file")
			data := []byte(value)
			if file != "" {
				if value != "" {
					return fmt.Errorf("use either --value or --file")
				}
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				data = b
			}
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				_, err := t.Metadata().Put(cmd.Context(), key, data)
				return err
			})
		},
	}
	addTopicFlag(putCmd)
	putCmd.Flags().String("key", "", "Metadata key")
	putCmd.Flags().String("value", "", "Value")
	putCmd.Flags().String("file", "", "Read the value from a file")
	return putCmd
}

func newMetadataRmCommand(open OpenFunc) *cobra.Command {
	rmCmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove"},
		Short:   "Remove a metadata key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, _ := cmd.Flags().GetString("key")
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				_, err := t.Metadata().Remove(cmd.Context(), key)
				return err
			})
		},
	}
	addTopicFlag(rmCmd)
	rmCmd.Flags().String("key", "", "Metadata key")
	return rmCmd
}
