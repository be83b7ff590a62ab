package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"site-cms/pkg/apiclient"
)

func newBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import a CMS backup",
	}
	cmd.AddCommand(newBackupExportCommand(), newBackupImportCommand())
	return cmd
}

func newBackupExportCommand() *cobra.Command {
	var format, out, token string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download a backup from the CMS API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := credential(token)
			if err != nil {
				return err
			}
			client, err := newClient(nil, nil)
			if err != nil {
				return err
			}
			path, n, err := exportBackup(cmd.Context(), client, cred, format, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", apiclient.FormatNDJSON, "backup format: ndjson or archive")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: the name the API suggests)")
	tokenFlag(cmd, &token)
	return cmd
}

// exportBackup streams the backup to out, or to the API's suggested file name
// in the current directory.
func exportBackup(ctx context.Context, client *apiclient.Client, cred apiclient.Credential, format, out string) (string, int64, error) {
	d, err := client.ExportBackup(ctx, cred, format)
	if err != nil {
		return "", 0, err
	}
	defer d.Body.Close()

	if out == "" {
		out = filepath.Base(d.Filename)
	}
	f, err := os.Create(out)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", out, err)
	}
	n, err := io.Copy(f, d.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return "", 0, fmt.Errorf("write %s: %w", out, err)
	}
	return out, n, nil
}

func newBackupImportCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Restore a backup through the CMS API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := credential(token)
			if err != nil {
				return err
			}
			client, err := newClient(nil, nil)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := client.ImportBackup(cmd.Context(), cred, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(summary))
			return nil
		},
	}
	tokenFlag(cmd, &token)
	return cmd
}
