package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
)

func newImportMarkdownCommand() *cobra.Command {
	var kind, token string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-markdown DIR",
		Short: "Create drafts from a directory of markdown files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := models.Kind(kind)
			if !k.Valid() {
				return fmt.Errorf("--kind must be blogs or stories, got %q", kind)
			}
			files, err := services.ReadMarkdownDir(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				return importMarkdown(cmd.Context(), cmd.OutOrStdout(), nil, apiclient.Credential{}, files)
			}
			cred, err := credential(token)
			if err != nil {
				return err
			}
			client, err := newClient(nil, nil)
			if err != nil {
				return err
			}
			return importMarkdown(cmd.Context(), cmd.OutOrStdout(), client.Content(k), cred, files)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(models.KindBlogs), "collection to import into: blogs or stories")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the files without creating anything")
	tokenFlag(cmd, &token)
	return cmd
}

// importMarkdown creates one draft per file. Invalid files are reported and
// skipped; the import fails if any file could not be created. A nil resource
// only validates.
func importMarkdown(ctx context.Context, out io.Writer, res *apiclient.ContentResource, cred apiclient.Credential, files []services.MarkdownFile) error {
	var failed int
	for _, f := range files {
		item := f.Item
		item.Status = models.StatusDraft
		if err := item.Validate(); err != nil {
			fmt.Fprintf(out, "skip %s: %v\n", f.Path, err)
			failed++
			continue
		}
		if res == nil {
			fmt.Fprintf(out, "ok   %s (%s)\n", f.Path, item.Slug)
			continue
		}
		created, err := res.Create(ctx, cred, item)
		if err != nil {
			fmt.Fprintf(out, "fail %s: %s\n", f.Path, apiclient.UserMessage(err, err.Error()))
			failed++
			continue
		}
		fmt.Fprintf(out, "created %s as %s\n", f.Path, created.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files were not imported", failed, len(files))
	}
	return nil
}
