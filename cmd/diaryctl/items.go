package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/model"
)

const snippetRunes = 60

func newAddCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a note, link or file",
	}
	cmd.PersistentFlags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")

	cmd.AddCommand(&cobra.Command{
		Use:   "note <text>...",
		Short: "Add a text note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addDraft(cmd, model.NewTextDraft(strings.Join(args, " ")).WithTags(tags...))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "url <link>",
		Short: "Add a web link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addDraft(cmd, model.NewURLDraft(args[0]).WithTags(tags...))
		},
	})

	var fileType string
	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Add an image or audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := fileDraft(args[0], model.ContentType(fileType))
			if err != nil {
				return err
			}
			return addDraft(cmd, d.WithTags(tags...))
		},
	}
	fileCmd.Flags().StringVar(&fileType, "type", "", "Item type (image, audio); detected from the file when empty")
	cmd.AddCommand(fileCmd)
	return cmd
}

// fileDraft reads path into a binary draft, guessing type and mime type
// when they are not given.
func fileDraft(path string, t model.ContentType) (model.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Draft{}, err
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if t == "" {
		switch {
		case strings.HasPrefix(mimeType, "image/"):
			t = model.TypeImage
		case strings.HasPrefix(mimeType, "audio/"):
			t = model.TypeAudio
		default:
			return model.Draft{}, fmt.Errorf("%s: unsupported file type %s", path, mimeType)
		}
	}
	return media.DraftFromDataURI(t, media.EncodeDataURI(data, mimeType))
}

func addDraft(cmd *cobra.Command, d model.Draft) error {
	return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
		start := time.Now()
		it, err := a.c.Library.AddItem(ctx, userID, d)
		if err != nil {
			return err
		}
		log.Debug().Str("item_id", it.ID).Str("type", string(it.Type)).Dur("elapsed", time.Since(start)).Msg("item added")
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), it)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", it.Type, it.ID)
		return nil
	})
}

func newListCmd() *cobra.Command {
	var tag, category, typ string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				items, err := a.c.Library.List(ctx, userID)
				if err != nil {
					return err
				}
				out := make([]model.ContentItem, 0, len(items))
				for _, it := range items {
					if tag != "" && !it.HasTag(tag) {
						continue
					}
					if category != "" && !strings.EqualFold(it.Category, category) {
						continue
					}
					if typ != "" && string(it.Type) != typ {
						continue
					}
					out = append(out, it)
					if limit > 0 && len(out) == limit {
						break
					}
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), out)
				}
				printItems(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only items with this tag")
	cmd.Flags().StringVar(&category, "category", "", "Only items in this category")
	cmd.Flags().StringVar(&typ, "type", "", "Only items of this type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many items")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item with its AI fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				it, err := a.c.Library.Get(ctx, userID, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), it)
				}
				printItem(cmd.OutOrStdout(), *it)
				return nil
			})
		},
	}
}

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> <tag>...",
		Short: "Add tags to an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				it, err := a.c.Library.AddTags(ctx, userID, args[0], args[1:]...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %s\n", it.ID, strings.Join(it.Tags, ", "))
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				if err := a.c.Library.DeleteItem(ctx, userID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the item list every time it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(ctx context.Context, a *app, userID string) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()

				snapshots := make(chan []model.ContentItem, 1)
				sub, err := a.c.Library.Watch(ctx, userID, func(items []model.ContentItem) {
					select {
					case <-snapshots:
					default:
					}
					snapshots <- items
				})
				if err != nil {
					return err
				}
				defer sub.Unsubscribe()

				w := cmd.OutOrStdout()
				seen := 0
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-sub.Done():
						return nil
					case items := <-snapshots:
						fmt.Fprintf(w, "--- %s  %d items\n", time.Now().Format(time.Kitchen), len(items))
						printItems(w, items)
						seen++
						if count > 0 && seen >= count {
							return nil
						}
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many snapshots (0 = until interrupted)")
	return cmd
}

func printItems(w io.Writer, items []model.ContentItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "(no items)")
		return
	}
	now := time.Now()
	for _, it := range items {
		category := it.Category
		if category == "" {
			category = "-"
			if it.AIPending(now) {
				category = "…"
			}
		}
		tags := ""
		if len(it.Tags) > 0 {
			tags = " [" + strings.Join(it.Tags, ", ") + "]"
		}
		fmt.Fprintf(w, "%s  %-8s %-12s %s%s\n", it.ID, it.Type, category, snippet(it), tags)
	}
}

func printItem(w io.Writer, it model.ContentItem) {
	fmt.Fprintf(w, "id:        %s\n", it.ID)
	fmt.Fprintf(w, "type:      %s\n", it.Type)
	fmt.Fprintf(w, "created:   %s\n", it.CreatedAt.Local().Format(time.RFC1123))
	if it.Type.IsBinary() {
		fmt.Fprintf(w, "content:   [%s]\n", it.MimeType)
	} else {
		fmt.Fprintf(w, "content:   %s\n", it.Content)
	}
	if it.Category != "" {
		fmt.Fprintf(w, "category:  %s (priority %d)\n", it.Category, it.Priority)
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(w, "tags:      %s\n", strings.Join(it.Tags, ", "))
	}
	for _, f := range []struct{ name, v string }{
		{"summary", it.Summary},
		{"transcript", it.Transcription},
		{"analysis", it.AIAnalysis},
	} {
		if f.v != "" {
			fmt.Fprintf(w, "\n%s:\n%s\n", f.name, f.v)
		}
	}
}

func snippet(it model.ContentItem) string {
	if it.Type.IsBinary() {
		return "[" + it.MimeType + "]"
	}
	s := strings.Join(strings.Fields(it.Content), " ")
	r := []rune(s)
	if len(r) > snippetRunes {
		return string(r[:snippetRunes]) + "…"
	}
	return s
}
