package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/filex"
	"github.com/dmitrijs2005/lockbox/internal/vault"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newUploadCommand(a *App) *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Encrypt a file locally and upload it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := a.sessions.Load()
			if err != nil {
				return err
			}

			data, err := filex.ReadLimited(args[0], common.MaxUploadSize)
			if err != nil {
				return err
			}

			stop := a.startSpinner("Encrypting and uploading " + filepath.Base(args[0]) + "...")
			rec, err := a.vault.Upload(ctx, vault.UploadRequest{
				Data:     data,
				Filename: args[0],
				MimeType: mimeType,
				OwnerID:  sess.UserID,
			})
			if err != nil {
				stop("")
				return err
			}
			stop(fmt.Sprintf("%s Uploaded %s %s", successText.Sprint("✓"),
				highlightText.Sprint(rec.OriginalName), mutedText.Sprint(humanize.IBytes(uint64(rec.Size)))))
			a.printf("id: %s\n", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mimeType, "type", "t", "", "MIME type (detected from the content when omitted)")
	return cmd
}

func newDownloadCommand(a *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download and decrypt a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := outDir
			if dir == "" {
				dir = a.config.DownloadDir
			}
			dir, err := filex.EnsureDir(dir)
			if err != nil {
				return err
			}

			stop := a.startSpinner("Downloading and decrypting...")
			file, err := a.vault.DownloadByID(cmd.Context(), args[0])
			if err != nil {
				stop("")
				return err
			}

			p, err := filex.WriteUnique(dir, file.Filename, file.Data)
			if err != nil {
				stop("")
				return err
			}
			stop(fmt.Sprintf("%s Saved %s %s", successText.Sprint("✓"),
				pathText.Sprint(p), mutedText.Sprint(humanize.IBytes(uint64(len(file.Data))))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory to save into (default from config)")
	return cmd
}

func newListCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored files, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.vault.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				a.printf("No files yet. Upload one with `lockbox upload <path>`.\n")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.OriginalName, humanize.IBytes(uint64(r.Size)), r.MimeType, humanize.Time(r.UploadedAt))
			}
			return w.Flush()
		},
	}
}

func newDeleteCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a file and its stored ciphertext",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rec, err := a.api.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.vault.Delete(ctx, rec); err != nil {
				return err
			}
			a.printf("%s Deleted %s\n", successText.Sprint("✓"), highlightText.Sprint(rec.OriginalName))
			return nil
		},
	}
}
