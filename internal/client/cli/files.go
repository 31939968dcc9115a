package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/filevault/internal/client/client"
	"github.com/dmitrijs2005/filevault/internal/server/models"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

func (a *App) upload(ctx context.Context, args []string) error {
	fs := newFlagSet("upload")
	mimeType := fs.String("mime", "", "MIME type, guessed from the extension when empty")
	folder := fs.String("folder", "", "folder id")
	tags := fs.String("tags", "", "comma separated tags")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	path := rest[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	opts := client.UploadOptions{MimeType: *mimeType, Tags: splitList(*tags)}
	if opts.MimeType == "" {
		opts.MimeType = mime.TypeByExtension(filepath.Ext(path))
	}
	if *folder != "" {
		opts.FolderID = folder
	}

	rec, err := a.client.Upload(ctx, filepath.Base(path), data, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s (%d bytes) id=%s\n", rec.Name, rec.Size, rec.ID)
	return nil
}

func (a *App) uploadVersion(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("version"), args, 2)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rest[1])
	if err != nil {
		return err
	}

	rec, err := a.client.UploadVersion(ctx, rest[0], data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded version %d of %s (%d bytes)\n", rec.LatestVersion().Version, rec.Name, rec.Size)
	return nil
}

func (a *App) download(ctx context.Context, args []string) error {
	fs := newFlagSet("download")
	out := fs.String("o", "", "output path, stdout when empty")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	_, data, err := a.client.Download(ctx, rest[0])
	if err != nil {
		return err
	}
	return a.writeOutput(*out, data)
}

func (a *App) info(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("info"), args, 1)
	if err != nil {
		return err
	}

	rec, err := a.client.GetMetadata(ctx, rest[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", rec.ID)
	fmt.Fprintf(w, "Name\t%s\n", rec.Name)
	fmt.Fprintf(w, "Type\t%s\n", rec.MimeType)
	fmt.Fprintf(w, "Size\t%d\n", rec.Size)
	fmt.Fprintf(w, "Owner\t%s\n", rec.UserID)
	fmt.Fprintf(w, "Versions\t%d\n", len(rec.Versions))
	fmt.Fprintf(w, "Downloads\t%d\n", rec.Downloads)
	fmt.Fprintf(w, "Share links\t%d\n", len(rec.ShareLinks))
	fmt.Fprintf(w, "Created\t%s\n", rec.CreatedAt.Format(time.RFC3339))
	if rec.IsDeleted() {
		fmt.Fprintf(w, "Deleted\t%s\n", rec.DeletedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := newFlagSet("ls")
	req := gs.ListRequest{}
	fs.StringVar(&req.FolderID, "folder", "", "folder id, root for files without folder")
	fs.StringVar(&req.Search, "q", "", "name contains")
	fs.StringVar(&req.MimeType, "mime", "", "MIME type contains")
	fs.StringVar(&req.SortBy, "sort", "", "sort key")
	fs.StringVar(&req.Order, "order", "", "asc or desc")
	fs.IntVar(&req.Page, "page", 1, "page")
	fs.IntVar(&req.Limit, "limit", models.DefaultPageLimit, "page size")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	page, err := a.client.List(ctx, req)
	if err != nil {
		return err
	}
	return a.printPage(page)
}

func (a *App) trash(ctx context.Context, args []string) error {
	fs := newFlagSet("trash")
	pageNo := fs.Int("page", 1, "page")
	limit := fs.Int("limit", models.DefaultPageLimit, "page size")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	page, err := a.client.ListTrash(ctx, *pageNo, *limit)
	if err != nil {
		return err
	}
	return a.printPage(page)
}

func (a *App) printPage(page *models.FilePage) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tUPDATED")
	for _, f := range page.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, f.MimeType, f.Size, f.UpdatedAt.Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Page %d of %d, %d file(s)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("rm"), args, 1)
	if err != nil {
		return err
	}
	if err := a.client.Delete(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %s to trash\n", rest[0])
	return nil
}

func (a *App) restore(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("restore"), args, 1)
	if err != nil {
		return err
	}
	rec, err := a.client.Restore(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %s\n", rec.Name)
	return nil
}

func (a *App) usage(ctx context.Context, args []string) error {
	if _, err := parseArgs(newFlagSet("usage"), args, 0); err != nil {
		return err
	}

	u, err := a.client.StorageUsage(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Used %d of %d bytes in %d file(s)\n", u.TotalSize, u.Quota, u.TotalFiles)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range u.ByType {
		fmt.Fprintf(w, "  %s\t%d file(s)\t%d bytes\n", t.MimeType, t.Count, t.Size)
	}
	return w.Flush()
}
